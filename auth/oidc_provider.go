package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/xiaoyuanzhu-com/my-todos/log"
	"golang.org/x/oauth2"
)

var oidcLogger = log.GetLogger("OIDC")

// ErrNoIDToken is returned when the token response carries no id_token
var ErrNoIDToken = errors.New("token response has no id_token")

// OIDCSettings are the client settings for one identity provider
type OIDCSettings struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCProvider wraps a discovered provider with its OAuth2 client config
type OIDCProvider struct {
	provider     *oidc.Provider
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCProvider discovers the issuer and prepares the OAuth2 client
func NewOIDCProvider(ctx context.Context, s OIDCSettings) (*OIDCProvider, error) {
	if s.IssuerURL == "" {
		return nil, fmt.Errorf("OAuth issuer URL not configured")
	}

	provider, err := oidc.NewProvider(ctx, s.IssuerURL)
	if err != nil {
		oidcLogger.Error().Err(err).Str("issuer", s.IssuerURL).Msg("OIDC provider discovery failed")
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	p := &OIDCProvider{
		provider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RedirectURL:  s.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: s.ClientID}),
	}

	oidcLogger.Info().
		Str("issuer", s.IssuerURL).
		Str("auth_endpoint", provider.Endpoint().AuthURL).
		Str("token_endpoint", provider.Endpoint().TokenURL).
		Msg("OIDC provider discovered and configured")

	return p, nil
}

// GetAuthCodeURL returns the authorization URL for OAuth flow
func (p *OIDCProvider) GetAuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a raw ID token and its claims
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (string, Claims, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", Claims{}, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", Claims{}, ErrNoIDToken
	}

	claims, err := p.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return "", Claims{}, err
	}
	return rawIDToken, claims, nil
}

// VerifyIDToken checks the signature, issuer, audience and expiry of a raw
// ID token and returns its claims
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (Claims, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, err
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}
