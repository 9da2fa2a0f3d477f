package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type ownerContextKey struct{}

// Authenticator validates bearer tokens on API requests and attaches the
// caller identity, taken from the token's subject claim, to the request
// context. The identity is what scopes session state and cached content
// to the calling application.
type Authenticator struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator verifying HMAC-signed tokens
// with the given secret.
func NewAuthenticator(secret []byte, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{secret: secret, logger: logger}
}

// Middleware wraps a handler with bearer-token authentication.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := a.authenticate(r)
		if err != nil {
			a.logger.Info("rejected unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withOwnerID(r.Context(), owner)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("no Authorization header")
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", fmt.Errorf("Authorization header is not a bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject claim")
	}
	return subject, nil
}

func withOwnerID(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerID returns the authenticated caller identity from a request context,
// or "" for unauthenticated requests.
func OwnerID(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}
