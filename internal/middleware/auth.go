package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AdminTokenHeader carries the admin token on protected requests
const AdminTokenHeader = "x-admin-token"

// TokenVerifier checks an admin token
type TokenVerifier interface {
	Verify(token string) error
}

// AdminAuthMiddleware rejects requests that do not carry a valid admin token
// in the x-admin-token header or as an Authorization bearer token.
func AdminAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := adminToken(r)
			if !ok {
				logger.Debug("Missing admin token", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "missing admin token")
				return
			}

			if err := verifier.Verify(token); err != nil {
				logger.Debug("Admin token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// adminToken returns the token exactly as sent; it is never trimmed.
func adminToken(r *http.Request) (string, bool) {
	if token := r.Header.Get(AdminTokenHeader); token != "" {
		return token, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Check for Bearer token format
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], parts[1] != ""
}
