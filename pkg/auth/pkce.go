package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE holds a proof key for code exchange: the verifier stays with the
// client, the challenge goes to the authorization endpoint.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE returns a random verifier and its S256 challenge.
func NewPKCE() (PKCE, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return PKCE{}, fmt.Errorf("generating pkce verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return PKCE{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
	}, nil
}

// ChallengeS256 derives the S256 code challenge for verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
