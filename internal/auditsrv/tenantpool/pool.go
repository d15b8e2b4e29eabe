// Package tenantpool maintains the process-wide cache of live connection
// pools to per-client isolated databases. Pools are built lazily from the
// registry's credential records, health-checked on every use, and evicted
// when a client is deprovisioned or a pool goes stale.
package tenantpool

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/attestra/attestra/internal/auditsrv/config"
)

// Handle is a live pooled connection to one client's isolated database.
// Handles are owned by the cache; downstream handlers use them for the
// duration of a request and must not retain them across requests.
type Handle interface {
	// DB returns the underlying pool for issuing tenant-scoped queries.
	DB() *sql.DB
	// PingContext performs a lightweight round-trip health probe.
	PingContext(ctx context.Context) error
	// Close releases the pool's physical connections.
	Close() error
}

// OpenFunc constructs a pool handle for the given DSN. The default opens
// a pgx-backed database/sql pool; tests substitute their own.
type OpenFunc func(ctx context.Context, dsn string) (Handle, error)

type sqlHandle struct {
	db *sql.DB
}

func (h *sqlHandle) DB() *sql.DB {
	return h.db
}

func (h *sqlHandle) PingContext(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *sqlHandle) Close() error {
	return h.db.Close()
}

// openTenantPool opens a pool against one tenant database. Limits are
// kept small: each client has its own pool, so the aggregate across all
// clients is what matters.
func openTenantPool(_ context.Context, dsn string) (Handle, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	tcfg := config.Config().TenantDB
	db.SetMaxOpenConns(tcfg.MaxOpenConns)
	db.SetMaxIdleConns(tcfg.MaxIdleConns)
	db.SetConnMaxLifetime(tcfg.GetConnMaxLifetimeOrDefault())
	db.SetConnMaxIdleTime(tcfg.GetConnMaxIdleTimeOrDefault())

	return &sqlHandle{db: db}, nil
}
