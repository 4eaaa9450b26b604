package handler

import (
	"net/http"
	"strings"

	"github.com/cedisense/cedisense-bfa/internal/infra/session"

	"go.uber.org/zap"
)

// SessionMiddleware resolves the acting user from a Bearer token. Requests
// without a token continue anonymously; a token that fails verification is
// rejected.
func SessionMiddleware(verifier *session.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithUserID(r.Context(), claims.Subject)))
		})
	}
}

// RequireSession rejects requests that reached it without a session user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := (session.Resolver{}).CurrentUserID(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
