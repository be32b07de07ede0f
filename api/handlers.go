package api

import (
	"context"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/notifications"
	"github.com/xiaoyuanzhu-com/my-todos/ordering"
	"github.com/xiaoyuanzhu-com/my-todos/server"
)

// Handlers holds references to server components
type Handlers struct {
	server *server.Server

	// heartbeat is the SSE keep-alive interval
	heartbeat time.Duration

	oidcOnce     sync.Once
	oidcProvider *auth.OIDCProvider
	oidcErr      error
}

// NewHandlers creates a new Handlers instance with server reference
func NewHandlers(srv *server.Server) *Handlers {
	return &Handlers{
		server:    srv,
		heartbeat: 30 * time.Second,
	}
}

func (h *Handlers) db() *db.DB { return h.server.DB() }
func (h *Handlers) engine() *ordering.Engine { return h.server.Engine() }
func (h *Handlers) notifier() *notifications.Service { return h.server.Notifications() }
func (h *Handlers) authMode() auth.AuthMode { return auth.ParseAuthMode(h.server.Config().AuthMode) }
func (h *Handlers) secureCookies() bool { return !h.server.Config().IsDevelopment() }

// oidc discovers the configured issuer on first use. A failure is kept until
// restart.
func (h *Handlers) oidc() (*auth.OIDCProvider, error) {
	h.oidcOnce.Do(func() {
		cfg := h.server.Config()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		h.oidcProvider, h.oidcErr = auth.NewOIDCProvider(ctx, auth.OIDCSettings{
			IssuerURL:    cfg.OAuthIssuerURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
		})
	})
	return h.oidcProvider, h.oidcErr
}
