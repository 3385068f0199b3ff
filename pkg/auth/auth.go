// Package auth resolves the user behind an access token issued by the hosted
// auth service, and drives its OAuth PKCE sign-in flow.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when a token is missing, malformed, expired or
// rejected by the auth service.
var ErrUnauthorized = errors.New("unauthorized")

// User is an authenticated principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the token pair issued after a successful sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// Verifier resolves an access token to its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}
