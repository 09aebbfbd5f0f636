package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/zynqcloud/face-enroll/internal/apperr"
	"github.com/zynqcloud/face-enroll/internal/auth"
	"github.com/zynqcloud/face-enroll/internal/httpx"
)

// Client-facing auth failure messages. Clients match on these literals.
const (
	MsgMissingToken = "Missing auth token"
	MsgNoEmail      = "No email in token"
	msgAuthFailed   = "Auth failed: "
)

// BearerAuth returns middleware that verifies the Authorization: Bearer token
// with authn and attaches the resulting identity to the request context.
// Every failure is a 401 in the standard error envelope.
func BearerAuth(authn auth.Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(w, apperr.New(apperr.KindAuth, MsgMissingToken))
				return
			}

			id, err := authn.Verify(r.Context(), token)
			if err != nil {
				logger.Info("token verification failed",
					"request_id", RequestIDFromContext(r.Context()), "err", err)
				httpx.WriteError(w, apperr.New(apperr.KindAuth, msgAuthFailed+err.Error()))
				return
			}
			if id == nil || id.Email == "" {
				httpx.WriteError(w, apperr.New(apperr.KindAuth, MsgNoEmail))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token from an Authorization header value.
// The scheme must be exactly "Bearer " and the token the next
// space-delimited field.
func bearerToken(header string) (string, bool) {
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token, _, _ := strings.Cut(rest, " ")
	if token == "" {
		return "", false
	}
	return token, true
}
