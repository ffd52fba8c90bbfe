package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/auth"
)

type Params struct {
	Credentials auth.Store
	// PublicPaths are served without an API key.
	PublicPaths    []string
	AllowedOrigins []string
	Timeout        time.Duration
}

func Wrap(ctx context.Context, handler http.Handler, params Params) http.Handler {
	// These middlewares will be executed in the reverse order of their
	// wrapping. i.e. the last wrap operation will be the first one executed
	// on a request.
	if params.Credentials != nil {
		handler = withApiKeyAuth(handler, params.Credentials, params.PublicPaths)
	}
	handler = withCors(handler, params.AllowedOrigins)
	handler = withRecover(handler)
	handler = withLogging(handler)
	handler = withContext(ctx, handler, params.Timeout)
	return handler
}
