package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// CorrelationIDKey is the context key for the correlation ID tying
	// together all log records of one external call
	CorrelationIDKey contextKey = "correlation_id"

	// CallStartKey is the context key for the external call's start time
	CallStartKey contextKey = "call_start"
)

// CorrelationHeader is the HTTP header carrying the correlation ID
const CorrelationHeader = "X-Correlation-ID"

// NewCorrelationContext stamps the context with a fresh correlation ID and
// the call start time. Called exactly once per external call; the resulting
// context is never mutated afterwards.
func NewCorrelationContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, CorrelationIDKey, uuid.NewString())
	return context.WithValue(ctx, CallStartKey, time.Now())
}

// WithCorrelationID adds an existing correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
	return context.WithValue(ctx, CallStartKey, time.Now())
}

// GetCorrelationID retrieves the correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if val := ctx.Value(CorrelationIDKey); val != nil {
		if correlationID, ok := val.(string); ok {
			return correlationID
		}
	}
	return ""
}

// GetCallStart retrieves the external call's start time from context
func GetCallStart(ctx context.Context) time.Time {
	if val := ctx.Value(CallStartKey); val != nil {
		if start, ok := val.(time.Time); ok {
			return start
		}
	}
	return time.Time{}
}

// Elapsed returns the time spent since the external call started, or zero
// when the context carries no call start
func Elapsed(ctx context.Context) time.Duration {
	start := GetCallStart(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// CorrelationID is an HTTP middleware that attaches a correlation ID to the
// request context, reusing the X-Correlation-ID header when the caller
// supplies one, and echoes it on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)

		var ctx context.Context
		if correlationID == "" {
			ctx = NewCorrelationContext(r.Context())
			correlationID = GetCorrelationID(ctx)
		} else {
			ctx = WithCorrelationID(r.Context(), correlationID)
		}

		w.Header().Set(CorrelationHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
