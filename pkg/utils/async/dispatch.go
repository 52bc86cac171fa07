package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/edulab-tools/usersync/pkg/utils/logging"
)

// Dispatch executes a handler function asynchronously in a new goroutine.
// It creates a background context and handles errors and panics. Used for
// notification delivery so a slow sink never stalls row processing.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	// New background context, but keep the logger.
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", goerr.Unwrap(err))
		}
	}()
}
