package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// DocumentIDKey is the context key for the document being evaluated.
	DocumentIDKey contextKey = "document_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithDocumentID adds a document ID to the context.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, documentID)
}

// GetDocumentID retrieves the document ID from the context.
func GetDocumentID(ctx context.Context) string {
	if documentID, ok := ctx.Value(DocumentIDKey).(string); ok {
		return documentID
	}
	return ""
}

// FromContext returns logger with the context fields of ctx attached. A nil
// logger falls back to slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return logger.With(args...)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), requestID))
	}
	if documentID := GetDocumentID(ctx); documentID != "" {
		attrs = append(attrs, slog.String(string(DocumentIDKey), documentID))
	}
	return attrs
}
