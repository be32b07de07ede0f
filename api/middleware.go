package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/log"
)

const (
	ctxKeyUser     = "user"
	ctxKeySession  = "session"
	ctxKeyUsername = "username"
)

// AuthMiddleware enforces authentication based on the configured auth mode
// (none, password, oauth).
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch h.authMode() {
		case auth.AuthModeOAuth:
			if !h.validateOAuthToken(c) {
				RespondUnauthorized(c, "Invalid or missing token")
				return
			}
		case auth.AuthModePassword:
			if h.validatePasswordSession(c) == nil {
				RespondUnauthorized(c, "Invalid or missing session")
				return
			}
		}

		c.Next()
	}
}

// RequestTimeout bounds the store work of a request. The handler sees the
// deadline through c.Request.Context().
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// validatePasswordSession loads the session and user named by the session
// cookie. Returns nil when either is missing or expired.
func (h *Handlers) validatePasswordSession(c *gin.Context) *db.User {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		return nil
	}

	ctx := c.Request.Context()
	session, err := h.db().GetSession(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("failed to get session")
		return nil
	}
	if session == nil {
		return nil
	}

	user, err := h.db().GetUser(ctx, session.UserID)
	if err != nil || user == nil {
		if err != nil {
			log.Error().Err(err).Msg("failed to load session user")
		}
		return nil
	}

	if err := h.db().TouchSession(ctx, token); err != nil {
		log.Error().Err(err).Msg("failed to touch session")
	}

	c.Set(ctxKeySession, session)
	c.Set(ctxKeyUser, user)
	return user
}

// validateOAuthToken verifies the ID token from the Authorization header or
// the id_token cookie
func (h *Handlers) validateOAuthToken(c *gin.Context) bool {
	token := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(token, "Bearer ") {
		token = strings.TrimPrefix(token, "Bearer ")
	} else {
		var err error
		token, err = c.Cookie(idTokenCookieName)
		if err != nil || token == "" {
			return false
		}
	}

	provider, err := h.oidc()
	if err != nil {
		log.Error().Err(err).Msg("failed to get OIDC provider for token validation")
		return false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	claims, err := provider.VerifyIDToken(ctx, token)
	if err != nil {
		log.Debug().Err(err).Msg("OAuth token validation failed")
		return false
	}

	username := claims.Username()
	if !auth.VerifyExpectedUsername(h.server.Config().OAuthExpectedUsername, username) {
		log.Warn().Str("username", username).Msg("OAuth token has unauthorized username")
		return false
	}

	c.Set(ctxKeyUsername, username)
	return true
}
