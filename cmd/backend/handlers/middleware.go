package handlers

import (
	"net/http"
	"strings"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyMiddleware checks a Bearer API key against a bcrypt hash. With no
// hash configured every request passes.
type APIKeyMiddleware struct {
	hash   []byte
	logger logger.Logger
}

// NewAPIKeyMiddleware creates the middleware for the given bcrypt hash.
func NewAPIKeyMiddleware(hash string, log logger.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		hash:   []byte(strings.TrimSpace(hash)),
		logger: log,
	}
}

// Enabled reports whether requests must carry an API key.
func (m *APIKeyMiddleware) Enabled() bool {
	return len(m.hash) > 0
}

// Handler wraps an HTTP handler with API key authentication.
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		key := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if err := bcrypt.CompareHashAndPassword(m.hash, []byte(key)); err != nil {
			m.logger.Warn(r.Context(), "invalid api key", map[string]interface{}{
				"path": r.URL.Path,
			})
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HashAPIKey returns the bcrypt hash to configure for key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
