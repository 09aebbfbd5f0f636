package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zynqcloud/face-enroll/internal/httpx"
)

// Recover converts a handler panic into a 500 error envelope so no fault
// reaches the transport as a dropped connection.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				logger.Error("handler panic",
					"panic", rv,
					"path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				httpx.WriteMessage(w, http.StatusInternalServerError, "internal error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
