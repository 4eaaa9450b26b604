// Package session resolves the acting user from a Supabase access token.
// Issuing and refreshing tokens is the auth service's job; this package
// only verifies them and carries the user id through the context.
package session

import (
	"context"
	"fmt"

	"github.com/cedisense/cedisense-bfa/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "userID"

// Claims are the parts of a Supabase access token the BFA reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with the project's JWT secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier. An empty secret rejects every token.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "session verification not configured"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Resolver implements port.SessionResolver from the request context.
type Resolver struct{}

// CurrentUserID returns the user id placed in ctx by the auth middleware.
func (Resolver) CurrentUserID(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(userIDKey).(string)
	return v, v != ""
}
