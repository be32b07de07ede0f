package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/log"
)

const (
	idTokenCookieName    = "id_token"
	oauthStateCookieName = "oauth_state"
	oauthStateMaxAge     = int(10 * time.Minute / time.Second)
)

var oauthLogger = log.GetLogger("ApiOAuth")

// OAuthAuthorize handles GET /api/oauth/authorize
func (h *Handlers) OAuthAuthorize(c *gin.Context) {
	provider, err := h.oidc()
	if err != nil {
		oauthLogger.Error().Err(err).Msg("OAuth is not available")
		RespondServiceUnavailable(c, "OAuth is not configured")
		return
	}

	state, err := auth.NewSessionToken()
	if err != nil {
		RespondInternalError(c, "Failed to start OAuth flow")
		return
	}
	c.SetCookie(oauthStateCookieName, state, oauthStateMaxAge, "/api/oauth", "", h.secureCookies(), true)

	c.Redirect(http.StatusFound, provider.GetAuthCodeURL(state))
}

// OAuthCallback handles GET /api/oauth/callback
func (h *Handlers) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		if errMsg := c.Query("error"); errMsg != "" {
			oauthLogger.Error().Str("error", errMsg).Str("description", c.Query("error_description")).Msg("OAuth callback error")
			redirectWithError(c, errMsg)
			return
		}
		redirectWithError(c, "no_code")
		return
	}

	wantState, err := c.Cookie(oauthStateCookieName)
	if err != nil || wantState == "" || wantState != c.Query("state") {
		oauthLogger.Warn().Msg("OAuth callback with mismatched state")
		redirectWithError(c, "invalid_state")
		return
	}
	c.SetCookie(oauthStateCookieName, "", -1, "/api/oauth", "", h.secureCookies(), true)

	provider, err := h.oidc()
	if err != nil {
		RespondServiceUnavailable(c, "OAuth is not configured")
		return
	}

	rawIDToken, claims, err := provider.Exchange(c.Request.Context(), code)
	if err != nil {
		oauthLogger.Error().Err(err).Msg("failed to exchange code for tokens")
		redirectWithError(c, "token_exchange_failed")
		return
	}

	username := claims.Username()
	if !auth.VerifyExpectedUsername(h.server.Config().OAuthExpectedUsername, username) {
		oauthLogger.Warn().Str("username", username).Msg("username not allowed")
		redirectWithError(c, "unauthorized_user")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(idTokenCookieName, rawIDToken, 0, "/", "", h.secureCookies(), true)

	oauthLogger.Info().Str("sub", claims.Sub).Str("username", username).Msg("OAuth login successful")
	c.Redirect(http.StatusFound, "/")
}

// OAuthLogout handles POST /api/oauth/logout
func (h *Handlers) OAuthLogout(c *gin.Context) {
	c.SetCookie(idTokenCookieName, "", -1, "/", "", h.secureCookies(), true)
	RespondNoContent(c)
}

func redirectWithError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(reason))
}
