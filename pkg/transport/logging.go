package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/dolmetsch/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// request: request ID, dialect, model, stream flag, duration, and the
// error when the request failed.
//
// The HTTP method and status code live at the adapter level; this
// middleware logs the handler outcome.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next MessageCreator) MessageCreator {
		return MessageCreatorFunc(func(ctx context.Context, req *api.MessagesRequest, w ResponseWriter) error {
			start := time.Now()

			err := next.CreateMessage(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("dialect", DialectFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return err
		})
	}
}
