package registry

import (
	"context"
	"database/sql"

	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/uuid"
)

// Store is the access layer for the control-plane registry. All
// operations require a valid context and return apperrors.Error with a
// sentinel from this package on failure.
type Store interface {
	// Client roster
	CreateClient(ctx context.Context, client *Client) apperrors.Error
	GetClient(ctx context.Context, clientID uuid.UUID) (*Client, apperrors.Error)
	ListClients(ctx context.Context) ([]*Client, apperrors.Error)
	UpdateClient(ctx context.Context, client *Client) apperrors.Error
	UpdateClientStatus(ctx context.Context, clientID uuid.UUID, status ClientStatus) apperrors.Error
	DeleteClient(ctx context.Context, clientID uuid.UUID) apperrors.Error

	// Per-client database credential records
	CreateClientDatabase(ctx context.Context, rec *ClientDatabase) apperrors.Error
	GetClientDatabase(ctx context.Context, clientID uuid.UUID) (*ClientDatabase, apperrors.Error)
	DeleteClientDatabase(ctx context.Context, clientID uuid.UUID) apperrors.Error

	// Per-client bucket records
	CreateClientBucket(ctx context.Context, rec *ClientBucket) apperrors.Error
	GetClientBucket(ctx context.Context, clientID uuid.UUID) (*ClientBucket, apperrors.Error)
	DeleteClientBucket(ctx context.Context, clientID uuid.UUID) apperrors.Error

	// WithTx runs fn against a transaction-bound Store, committing if fn
	// returns nil and rolling back otherwise. Nested calls reuse the
	// enclosing transaction.
	WithTx(ctx context.Context, fn func(Store) apperrors.Error) apperrors.Error
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New returns a Store backed by the given control-plane database pool.
func New(db *sql.DB) Store {
	return &sqlStore{db: db, q: db}
}
