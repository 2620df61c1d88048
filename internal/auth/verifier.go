// Package auth validates access tokens issued by the identity platform.
// The API never mints tokens itself; it only checks signatures and claims
// and exposes the caller's identity and roles to handlers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// RoleAdmin marks back-office users. Roles ride on the "roles" claim.
const RoleAdmin = "admin"

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	UserID string
	Roles  []string
}

// Verifier parses and validates HS256 access tokens.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Verify parses the serialized token and returns the caller's identity.
func (v Verifier) Verify(serialized string) (Identity, error) {
	if len(v.Secret) == 0 {
		return Identity{}, errors.New("auth: verifier has no secret configured")
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now() })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	tok, err := jwt.ParseString(serialized, options...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub := strings.TrimSpace(tok.Subject())
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{UserID: sub, Roles: rolesClaim(tok)}, nil
}

func rolesClaim(tok jwt.Token) []string {
	raw, ok := tok.Get("roles")
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
