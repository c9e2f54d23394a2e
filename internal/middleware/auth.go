package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/models"
)

// AuthMiddleware rejects requests without a valid identity token and attaches
// the verified identity to the request context.
func AuthMiddleware(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	log = log.With("middleware", "AuthMiddleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Authentication required")
				return
			}

			id, err := verifier.Verify(header)
			if err != nil {
				log.Debug("rejected token", "path", r.URL.Path, "error", err)
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
