package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/danilofalcao/llama-gateway/internal/auth"
	"github.com/danilofalcao/llama-gateway/internal/server/response"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
)

const APIKeyHeader = "X-API-KEY"

func withApiKeyAuth(next http.Handler, store auth.Store, public []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method == http.MethodOptions || slices.Contains(public, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		lgr := logutils.FromContext(ctx)

		apiKey := apiKeyFromRequest(r)
		if apiKey == "" {
			lgr.Warn(ctx, "No API Key provided")
			response.WriteError(w, http.StatusUnauthorized, "Missing API key")
			return
		}

		principal, ok, err := store.Lookup(ctx, apiKey)
		if err != nil {
			lgr.Errorf(ctx, "credential lookup failed: %s", err)
			response.WriteError(w, http.StatusInternalServerError, "Authentication unavailable")
			return
		}
		if !ok {
			lgr.Warn(ctx, "Invalid API Key provided")
			response.WriteError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		lgr.Debugf(ctx, "authenticated as %s", principal)
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, principal)))
	})
}

// apiKeyFromRequest reads X-API-KEY, falling back to a bearer token.
func apiKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}
