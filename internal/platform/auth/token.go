// Package auth handles the bearer token the client sends with every
// request. The token is opaque to this client — the server owns validation —
// but when it happens to be a JWT its expiry can be inspected so callers can
// warn before issuing requests that are doomed to a 401.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the configured bearer token.
type TokenSource struct {
	token string
}

// NewTokenSource wraps a raw token string. An empty token is valid and
// means unauthenticated access.
func NewTokenSource(token string) *TokenSource {
	return &TokenSource{token: token}
}

// Token returns the raw token.
func (t *TokenSource) Token() string { return t.token }

// ExpiresWithin reports whether the token is a JWT whose exp claim falls
// within d from now. Opaque tokens and JWTs without an exp claim report
// false. The signature is deliberately not verified.
func (t *TokenSource) ExpiresWithin(d time.Duration) bool {
	if t.token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < d
}
