package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess is the "type" claim carried by access tokens.
	TypeAccess = "access"
	// TypeRefresh is the "type" claim carried by refresh tokens.
	TypeRefresh = "refresh"
)

var (
	// ErrNotJWT is returned by Inspect for credentials that are not three-part JWTs.
	ErrNotJWT = errors.New("credential is not a jwt")
	// ErrNoExpiry is returned when a token carries no exp claim.
	ErrNoExpiry = errors.New("token has no expiry")
)

// Claims mirrors the payload the backend puts into its tokens.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes raw without verifying the signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim.
func (c *Claims) ExpiresAt() (time.Time, error) {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return c.RegisteredClaims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether the token expires within d of now. Tokens
// without an expiry never report true.
func (c *Claims) ExpiresWithin(d time.Duration, now time.Time) bool {
	exp, err := c.ExpiresAt()
	if err != nil {
		return false
	}
	return !exp.After(now.Add(d))
}

// TTL returns the remaining lifetime. Tokens without an expiry return 0,
// which stores interpret as "no TTL". Once exp has passed the result is
// negative (at most -1ms), which stores interpret as "already expired".
func (c *Claims) TTL(now time.Time) time.Duration {
	exp, err := c.ExpiresAt()
	if err != nil {
		return 0
	}
	d := exp.Sub(now)
	if d <= 0 {
		return min(d, -time.Millisecond)
	}
	return d
}

// Expired reports whether exp is at or before now. Tokens without an expiry
// never report true.
func (c *Claims) Expired(now time.Time) bool {
	exp, err := c.ExpiresAt()
	if err != nil {
		return false
	}
	return !exp.After(now)
}

// Subject returns the sub claim (the user's email for this backend).
func (c *Claims) Subject() string {
	if c == nil {
		return ""
	}
	return c.RegisteredClaims.Subject
}
