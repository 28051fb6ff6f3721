package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
)

type userKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}

// Authenticator resolves bearer tokens to users
type Authenticator struct {
	tokens map[string]string
}

// NewAuthenticator builds an authenticator from a token to user map
func NewAuthenticator(tokens map[string]string) *Authenticator {
	copied := make(map[string]string, len(tokens))
	for token, user := range tokens {
		copied[token] = user
	}
	return &Authenticator{tokens: copied}
}

// Authenticate returns the user owning the Authorization header's token
func (a *Authenticator) Authenticate(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for known, user := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return user, true
		}
	}
	return "", false
}

// Middleware rejects requests without a known bearer token and scopes the
// request to the token's user.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.Authenticate(r.Header.Get("Authorization"))
		if !ok {
			respondError(w, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Unauthorized", nil)
			return
		}

		ctx := WithUser(r.Context(), user)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).WithField("user", user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
