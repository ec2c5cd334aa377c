package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/mealsync/internal/server/handlers"
)

// TokenVerifier is satisfied by *handlers.Tokens.
type TokenVerifier interface {
	Verify(raw string) (handlers.Principal, error)
}

// AuthMiddleware rejects requests without a valid bearer token and puts the
// principal into the request context for handlers and the rate limiter.
func AuthMiddleware(logger *slog.Logger, tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, reason := bearerToken(r)
			if reason != "" {
				logger.WarnContext(r.Context(), "rejected request", slog.String("reason", reason), slog.String("path", r.URL.Path))
				writeError(w, reason, http.StatusUnauthorized)
				return
			}

			principal, err := tokens.Verify(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid access token", slog.Any("error", err))
				writeError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithPrincipal(r.Context(), principal)))
		})
	}
}

// bearerToken возвращает токен или текст ошибки для клиента
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing token"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid token format"
	}
	return strings.TrimSpace(token), ""
}
