// SPDX-License-Identifier: AGPL-3.0-only

// Package auth verifies the HS256 bearer tokens issued by the farm
// backend and exposes the authenticated user to request handlers.
package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

// User is the identity carried inside an access token.
type User struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserCode string `json:"userCode"`
}

type claims struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserCode string `json:"userCode"`
	jwt.RegisteredClaims
}

// Verifier validates access tokens against the shared signing secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier. The secret must match the one the
// farm backend signs tokens with.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (*User, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("unexpected signing method: " + t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Unauthorized("access token has expired, please refresh your token")
		}
		return nil, errors.Unauthorized("invalid access token: " + err.Error())
	}
	if !token.Valid {
		return nil, errors.Unauthorized("invalid access token")
	}
	return &User{
		UserID:   c.UserID,
		Email:    c.Email,
		Name:     c.Name,
		UserCode: c.UserCode,
	}, nil
}

// Mint issues a token for the given user. Used by the service-token
// generator and by tests.
func (v *Verifier) Mint(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   user.UserID,
		Email:    user.Email,
		Name:     user.Name,
		UserCode: user.UserCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

type contextKey struct{}

// UserFromContext returns the authenticated user set by the middleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(contextKey{}).(*User)
	return user, ok
}

// WithUser attaches a user to the context. Exposed for handler tests.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// Middleware rejects requests without a valid bearer token.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		user, err := v.Verify(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalMiddleware attaches the user when a valid token is present and
// passes the request through anonymously otherwise.
func (v *Verifier) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := bearerToken(r); raw != "" {
			if user, err := v.Verify(raw); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}
