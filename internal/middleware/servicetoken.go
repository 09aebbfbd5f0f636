package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/zynqcloud/face-enroll/internal/httpx"
)

// ServiceTokenHeader carries the operator token for internal endpoints.
const ServiceTokenHeader = "X-Service-Token"

// ServiceToken returns middleware that guards operator endpoints (metrics,
// readiness) with a shared token. An empty token disables the check.
func ServiceToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			provided := r.Header.Get(ServiceTokenHeader)
			// Constant-time compare to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				httpx.WriteMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
