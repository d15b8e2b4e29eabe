package registry

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/common/apperrors"
)

// schemaStatements create the registry tables. The UNIQUE constraints on
// client_id, db_name, and bucket_name are load-bearing: they enforce the
// one-record-per-client invariant and reject generated-name collisions at
// the registry layer.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		poc_email VARCHAR(255) NOT NULL,
		email_domain VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS client_databases (
		id UUID PRIMARY KEY,
		client_id UUID NOT NULL UNIQUE REFERENCES clients (id) ON DELETE CASCADE,
		db_name VARCHAR(63) NOT NULL UNIQUE,
		db_host VARCHAR(255) NOT NULL,
		db_port INTEGER NOT NULL,
		db_user VARCHAR(63) NOT NULL,
		encrypted_password BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS client_buckets (
		id UUID PRIMARY KEY,
		client_id UUID NOT NULL UNIQUE REFERENCES clients (id) ON DELETE CASCADE,
		bucket_name VARCHAR(63) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

// EnsureSchema creates the registry tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) apperrors.Error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to apply registry schema")
			return ErrRegistry.MsgErr("unable to apply registry schema", err)
		}
	}
	return nil
}
