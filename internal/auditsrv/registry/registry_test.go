package registry

import (
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClientStatusIsValid(t *testing.T) {
	assert.True(t, ClientStatusActive.IsValid())
	assert.True(t, ClientStatusInactive.IsValid())
	assert.True(t, ClientStatusSuspended.IsValid())
	assert.False(t, ClientStatus("").IsValid())
	assert.False(t, ClientStatus("deleted").IsValid())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(nil))

	// wrapped driver errors still match
	wrapped := &pgconn.PgError{Code: "23505", ConstraintName: "client_databases_db_name_key"}
	assert.True(t, isUniqueViolation(wrapped))
}

func TestErrorSentinels(t *testing.T) {
	assert.ErrorIs(t, ErrNotFound, ErrRegistry)
	assert.ErrorIs(t, ErrAlreadyExists, ErrRegistry)
	assert.ErrorIs(t, ErrInvalidInput, ErrRegistry)

	refined := ErrNotFound.Msg("no database record for client")
	assert.ErrorIs(t, refined, ErrNotFound)
	assert.ErrorIs(t, refined, ErrRegistry)
}
