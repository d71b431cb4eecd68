package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"studysync/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response. Aborted
// responses (http.ErrAbortHandler) are passed on to net/http untouched.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("panic in handler",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", httputil.GetUserID(r),
					"stack", string(debug.Stack()),
				)
				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error",
					map[string]any{"code": "internal"})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
