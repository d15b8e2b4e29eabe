// Package registry implements the control-plane store for the audit
// portal: the client roster plus the per-client database credential and
// bucket records that describe each client's isolated infrastructure.
package registry

import (
	"time"

	"github.com/attestra/attestra/internal/common/uuid"
)

// ClientStatus is the lifecycle status of a client organization.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "active"
	ClientStatusInactive  ClientStatus = "inactive"
	ClientStatusSuspended ClientStatus = "suspended"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientStatusActive, ClientStatusInactive, ClientStatusSuspended:
		return true
	}
	return false
}

// Client is an onboarded tenant organization.
type Client struct {
	ID          uuid.UUID
	Name        string
	POCEmail    string
	EmailDomain string
	Status      ClientStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClientDatabase is the one-to-one record describing how to reach a
// client's isolated database. It is the sole source of truth for that
// client's storage location; the password is stored encrypted and only
// the pool cache ever decrypts it.
type ClientDatabase struct {
	ID                uuid.UUID
	ClientID          uuid.UUID
	DBName            string
	DBHost            string
	DBPort            int
	DBUser            string
	EncryptedPassword []byte
	CreatedAt         time.Time
}

// ClientBucket is the one-to-one record naming a client's isolated
// object-storage bucket.
type ClientBucket struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	BucketName string
	CreatedAt  time.Time
}
