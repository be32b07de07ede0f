package auth

import (
	"strings"
)

// AuthMode represents the authentication mode
type AuthMode string

const (
	AuthModeNone     AuthMode = "none"
	AuthModePassword AuthMode = "password"
	AuthModeOAuth    AuthMode = "oauth"
)

// ParseAuthMode maps a configured mode to an AuthMode. Anything unknown
// falls back to none.
func ParseAuthMode(mode string) AuthMode {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "password":
		return AuthModePassword
	case "oauth":
		return AuthModeOAuth
	default:
		return AuthModeNone
	}
}

// RequiresLogin reports whether requests must carry credentials
func (m AuthMode) RequiresLogin() bool {
	return m != AuthModeNone
}

// Claims are the ID token claims used to identify an OAuth user
type Claims struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// Username picks preferred_username, then the local part of the email, then sub
func (c Claims) Username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	if local, _, ok := strings.Cut(c.Email, "@"); ok && local != "" {
		return local
	}
	return c.Sub
}

// VerifyExpectedUsername reports whether username may sign in. An empty
// expected username accepts anyone.
func VerifyExpectedUsername(expected, username string) bool {
	if expected == "" {
		return true
	}
	return username == expected
}
