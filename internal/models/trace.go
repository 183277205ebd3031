package models

import "context"

type traceIDKey struct{}

// WithTraceID attaches the request trace ID so work started by the request,
// including queued tasks, logs under the same ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}
