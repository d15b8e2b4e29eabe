package secrets

import "github.com/attestra/attestra/internal/common/uuid"

// NewPassword generates a random password for a tenant database role. Two
// random UUIDs give 244 bits of entropy; the value is generated once at
// provisioning time, stored only in encrypted form, and never logged.
func NewPassword() string {
	return uuid.NewString() + uuid.NewString()
}
