// Package uuid wraps github.com/google/uuid with the small surface the
// portal services need. Random (version 4) UUIDs are the default; they are
// used for entity identities and as the entropy source for generated
// credentials.
package uuid

import "github.com/google/uuid"

// UUID is aliased from github.com/google/uuid.UUID.
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// New returns a new random (version 4) UUID. Panics if the platform's
// entropy source fails.
func New() UUID {
	return uuid.New()
}

// NewRandom returns a new random UUID and any error encountered during
// generation.
func NewRandom() (UUID, error) {
	return uuid.NewRandom()
}

// NewString returns the string form of a new random UUID.
func NewString() string {
	return uuid.NewString()
}

// Parse parses a UUID string. Returns an error if the string is not a
// valid UUID.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics on invalid input. Intended for
// tests and compile-time constants only.
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}
