package logging

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jacobbrewer1/uhttp"
)

// LoggerFromRequest returns a logger carrying the request ID of the given request.
func LoggerFromRequest(l *slog.Logger, r *http.Request) *slog.Logger {
	if r != nil {
		l = LoggerFromContext(r.Context(), l)
	}
	return l
}

// LoggerFromContext returns a logger carrying the request ID stored in the context, if any.
func LoggerFromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	if ctx == nil {
		return l
	}

	if reqID := uhttp.RequestIDFromContext(ctx); reqID != "" {
		l = l.With(slog.String(KeyRequestID, reqID))
	}
	return l
}
