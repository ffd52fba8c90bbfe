package logutils

import (
	"context"

	"github.com/danilofalcao/llama-gateway/internal/constants"
	"github.com/danilofalcao/llama-gateway/internal/server/logger"
)

// FromContext retrieves the logger from the context. It never returns nil; requests
// that did not pass through the server middleware get logger.Fallback.
func FromContext(ctx context.Context) *logger.Logger {
	if lgr, ok := ctx.Value(constants.LoggerKey).(*logger.Logger); ok && lgr != nil {
		return lgr
	}
	return logger.Fallback
}

// ContextWithLogger adds a logger to the context
func ContextWithLogger(ctx context.Context, lgr *logger.Logger) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, lgr)
}
