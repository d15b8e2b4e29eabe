package registry

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/config"
)

// Open establishes the shared control-plane database pool. This pool is
// distinct from the per-client tenant pools; it carries the registry
// tables and the administrative statements issued by the provisioner.
func Open() (*sql.DB, error) {
	db, err := sql.Open("pgx", config.ControlPlaneDSN())
	if err != nil {
		log.Error().Err(err).Msg("failed to open control-plane db")
		return nil, fmt.Errorf("failed to open control-plane database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Error().Err(err).Msg("failed to ping control-plane db")
		db.Close()
		return nil, fmt.Errorf("failed to ping control-plane database: %w", err)
	}

	return db, nil
}
