// Package identity models sessions issued by the passwordless auth provider.
package identity

import "time"

// User is the signed-in account behind a session
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the access/refresh token pair the browser holds
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials are the raw tokens a request presents
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether no token is present
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// CallbackTokens are the tokens delivered to the magic-link redirect
type CallbackTokens struct {
	AccessToken  string
	RefreshToken string
}

// Present reports whether the redirect carried a usable token pair
func (t CallbackTokens) Present() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}
