package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/log"
)

const (
	// sessionCookieName is the cookie name for password auth sessions
	sessionCookieName = "session"
	// sessionCookieMaxAge matches db.SessionDuration, in seconds
	sessionCookieMaxAge = int(db.SessionDuration / time.Second)
)

var authLogger = log.GetLogger("ApiAuth")

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	user, err := h.db().FindUserByEmail(ctx, body.Email)
	if err != nil {
		RespondStoreError(c, err, "log in")
		return
	}
	if user == nil || !auth.VerifyPassword(body.Password, user.PasswordHash, user.Salt) {
		authLogger.Warn().Msg("login attempt with invalid credentials")
		RespondUnauthorized(c, "Invalid email or password")
		return
	}

	token, err := auth.NewSessionToken()
	if err != nil {
		RespondStoreError(c, err, "create session")
		return
	}
	if _, err := h.db().CreateSession(ctx, token, user.ID); err != nil {
		RespondStoreError(c, err, "create session")
		return
	}

	c.SetCookie(sessionCookieName, token, sessionCookieMaxAge, "/", "", h.secureCookies(), true)

	authLogger.Info().Int64("userId", user.ID).Str("sessionId", token[:8]+"...").Msg("login successful")
	RespondData(c, user)
}

// Logout handles POST /api/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err == nil && token != "" {
		if err := h.db().DeleteSession(c.Request.Context(), token); err != nil {
			authLogger.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.SetCookie(sessionCookieName, "", -1, "/", "", h.secureCookies(), true)
	RespondNoContent(c)
}
