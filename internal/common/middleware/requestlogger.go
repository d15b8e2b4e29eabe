// Package middleware provides HTTP middleware shared by the portal
// services: request logging, panic recovery, and request timeouts. It
// integrates with zerolog for structured logging and tags every request
// with a unique ID for tracing.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/common/uuid"
)

type requestIdContextKey string

const (
	requestIdKey = requestIdContextKey("requestId")

	// RequestIDHeader carries the request ID back to the caller.
	RequestIDHeader = "X-Attestra-Request-ID"
)

// RequestLogger logs incoming requests and installs a request-scoped
// logger carrying a unique request ID into the context. The ID is also
// returned in the response headers.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = context.WithValue(ctx, requestIdKey, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Str("proto", r.Proto).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIdFromContext returns the request ID installed by RequestLogger,
// or an empty string if none is present.
func RequestIdFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIdKey).(string); ok {
		return id
	}
	return ""
}

// newRequestId generates a unique request identifier, falling back to a
// timestamp-based ID if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
