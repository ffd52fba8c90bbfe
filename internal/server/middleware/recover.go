package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/danilofalcao/llama-gateway/internal/server/response"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
)

// withRecover turns a handler panic into a 500 for that request only.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil || rec == http.ErrAbortHandler {
				if rec != nil {
					panic(rec)
				}
				return
			}
			ctx := r.Context()
			logutils.FromContext(ctx).Errorf(ctx, "panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
			response.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
