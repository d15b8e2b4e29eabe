package tenantpool

import "context"

type ctxKeyType string

const ctxHandleKey ctxKeyType = "TenantPoolHandle"

// WithHandle attaches a resolved tenant pool handle to the context for
// downstream handlers.
func WithHandle(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, ctxHandleKey, h)
}

// HandleFromContext returns the tenant pool handle attached by the
// resolver, or nil if the request was not resolved.
func HandleFromContext(ctx context.Context) Handle {
	if h, ok := ctx.Value(ctxHandleKey).(Handle); ok {
		return h
	}
	return nil
}
