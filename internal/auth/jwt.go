package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when there is no token to inspect
var ErrNoToken = errors.New("no token")

// TokenClaims represents the claims the upstream backend puts in session tokens
type TokenClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// PeekToken decodes the claims of a session token WITHOUT verifying its
// signature. The upstream backend owns the signing key and stays the only
// authority on validity; the gateway uses the claims for cookie lifetimes and
// audit attribution only.
func PeekToken(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// Expiry returns the token expiry, or the zero time when the token has none
func (c *TokenClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether the token carries an expiry that has passed
func (c *TokenClaims) Expired(now time.Time) bool {
	exp := c.Expiry()
	return !exp.IsZero() && !now.Before(exp)
}
