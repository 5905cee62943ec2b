// Package jwtx issues and verifies the HS256 bearer tokens the web layer
// uses to call the gate API. There is exactly one trusted caller, so a
// shared-secret algorithm is enough; no key set or rotation machinery.
package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/copperline/gate/pkg/cryptox"
)

// DefaultServiceTokenTTL is the default lifetime for service-auth tokens.
// These are machine-to-machine credentials, so keep them short.
const DefaultServiceTokenTTL = 15 * time.Minute

// Claims are the service-auth token claims. Keep changes additive.
type Claims struct {
	jwt.RegisteredClaims

	// Scopes the calling service holds, e.g. "gate:verify gate:manage".
	Scopes []string `json:"scopes,omitempty"`
}

// NewServiceClaims builds minimally-correct claims for a service token.
func NewServiceClaims(
	subject string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scopes: scopes,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
