package logger

import (
	"context"
	"log/slog"
)

type requestIDKey struct{}

func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
