package provisioner

import (
	"strings"

	"github.com/attestra/attestra/internal/common/uuid"
)

// Generated resource names are derived deterministically from the client
// identity: a stable prefix plus a truncated fragment of the identity's
// hex form. The registry's UNIQUE constraints are the backstop against
// fragment collisions.

const (
	namePrefix   = "aud"
	nameFragLen  = 12
	bucketSuffix = "evidence"
)

// identityFragment returns the leading hex characters of the client
// identity with dashes removed.
func identityFragment(clientID uuid.UUID) string {
	return strings.ReplaceAll(clientID.String(), "-", "")[:nameFragLen]
}

// DatabaseName returns the generated name of the client's isolated
// database. Valid as an unquoted PostgreSQL identifier.
func DatabaseName(clientID uuid.UUID) string {
	return namePrefix + "_" + identityFragment(clientID)
}

// RoleName returns the generated name of the database role owning the
// client's database.
func RoleName(clientID uuid.UUID) string {
	return namePrefix + "_" + identityFragment(clientID)
}

// BucketName returns the generated name of the client's evidence bucket.
// Uses hyphens instead of underscores to satisfy S3 naming rules.
func BucketName(clientID uuid.UUID) string {
	return namePrefix + "-" + identityFragment(clientID) + "-" + bucketSuffix
}
