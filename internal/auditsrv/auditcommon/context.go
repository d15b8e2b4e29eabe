// Package auditcommon provides shared context plumbing and common types
// for the audit portal control-plane service.
package auditcommon

import (
	"context"

	"github.com/attestra/attestra/internal/common/uuid"
)

type ctxKeyType string

const (
	ctxClientIdKey ctxKeyType = "AuditClientId"
)

// WithClientID sets the resolved client identity in the context.
func WithClientID(ctx context.Context, clientID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxClientIdKey, clientID)
}

// GetClientID retrieves the resolved client identity from the context.
// Returns uuid.Nil if no client has been resolved.
func GetClientID(ctx context.Context) uuid.UUID {
	if clientID, ok := ctx.Value(ctxClientIdKey).(uuid.UUID); ok {
		return clientID
	}
	return uuid.Nil
}
