package eventhub

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger attaches logger to ctx, the way the teacher's listen.go
// carries a per-device logger down through its listen loop.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger attached to ctx, or slog.Default() if none
// was attached.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// slogErr formats err as a slog attribute, or is omitted entirely when
// err is nil, matching the teacher's slogErr(err) call sites in
// listen.go.
func slogErr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("err", err)
}
