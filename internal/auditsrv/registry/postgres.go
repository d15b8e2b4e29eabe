package registry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/uuid"
)

// sqlStore implements Store over the control-plane PostgreSQL database.
// When tx-bound, db is nil and q is the enclosing transaction.
type sqlStore struct {
	db *sql.DB
	q  querier
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (s *sqlStore) WithTx(ctx context.Context, fn func(Store) apperrors.Error) apperrors.Error {
	if s.db == nil {
		// already inside a transaction; join it
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to begin registry transaction")
		return ErrRegistry.Err(err)
	}

	txStore := &sqlStore{q: tx}
	if ferr := fn(txStore); ferr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Ctx(ctx).Error().Err(rbErr).Msg("failed to rollback registry transaction")
		}
		return ferr
	}

	if err := tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit registry transaction")
		return ErrRegistry.Err(err)
	}
	return nil
}

// CreateClient inserts a new client row. The ID is assigned here if the
// caller did not set one.
func (s *sqlStore) CreateClient(ctx context.Context, client *Client) apperrors.Error {
	if client.Name == "" || client.POCEmail == "" {
		return ErrInvalidInput.Msg("client name and contact email are required")
	}
	if client.Status == "" {
		client.Status = ClientStatusActive
	}
	if !client.Status.IsValid() {
		return ErrInvalidInput.Msg("invalid client status")
	}
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	query := `
		INSERT INTO clients (id, name, poc_email, email_domain, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at;
	`

	row := s.q.QueryRowContext(ctx, query,
		client.ID, client.Name, client.POCEmail, client.EmailDomain, string(client.Status))
	if err := row.Scan(&client.CreatedAt, &client.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists.Msg("client already exists")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", client.ID.String()).Msg("failed to insert client")
		return ErrRegistry.Err(err)
	}
	return nil
}

// GetClient retrieves a client by identity.
func (s *sqlStore) GetClient(ctx context.Context, clientID uuid.UUID) (*Client, apperrors.Error) {
	query := `
		SELECT id, name, poc_email, email_domain, status, created_at, updated_at
		FROM clients
		WHERE id = $1;
	`

	var client Client
	row := s.q.QueryRowContext(ctx, query, clientID)
	if err := row.Scan(&client.ID, &client.Name, &client.POCEmail,
		&client.EmailDomain, &client.Status, &client.CreatedAt, &client.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound.Msg("client not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to retrieve client")
		return nil, ErrRegistry.Err(err)
	}
	return &client, nil
}

// ListClients returns all clients ordered by creation time.
func (s *sqlStore) ListClients(ctx context.Context) ([]*Client, apperrors.Error) {
	query := `
		SELECT id, name, poc_email, email_domain, status, created_at, updated_at
		FROM clients
		ORDER BY created_at;
	`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list clients")
		return nil, ErrRegistry.Err(err)
	}
	defer rows.Close()

	clients := make([]*Client, 0)
	for rows.Next() {
		var client Client
		if err := rows.Scan(&client.ID, &client.Name, &client.POCEmail,
			&client.EmailDomain, &client.Status, &client.CreatedAt, &client.UpdatedAt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan client row")
			return nil, ErrRegistry.Err(err)
		}
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrRegistry.Err(err)
	}
	return clients, nil
}

// UpdateClient updates the mutable attributes of a client.
func (s *sqlStore) UpdateClient(ctx context.Context, client *Client) apperrors.Error {
	if client.Name == "" || client.POCEmail == "" {
		return ErrInvalidInput.Msg("client name and contact email are required")
	}

	query := `
		UPDATE clients
		SET name = $2, poc_email = $3, email_domain = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at;
	`

	row := s.q.QueryRowContext(ctx, query, client.ID, client.Name, client.POCEmail, client.EmailDomain)
	if err := row.Scan(&client.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound.Msg("client not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", client.ID.String()).Msg("failed to update client")
		return ErrRegistry.Err(err)
	}
	return nil
}

// UpdateClientStatus toggles a client's lifecycle status.
func (s *sqlStore) UpdateClientStatus(ctx context.Context, clientID uuid.UUID, status ClientStatus) apperrors.Error {
	if !status.IsValid() {
		return ErrInvalidInput.Msg("invalid client status")
	}

	query := `
		UPDATE clients
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id;
	`

	var id uuid.UUID
	row := s.q.QueryRowContext(ctx, query, clientID, string(status))
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound.Msg("client not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to update client status")
		return ErrRegistry.Err(err)
	}
	return nil
}

// DeleteClient removes a client row. Deleting a client that does not
// exist is not an error.
func (s *sqlStore) DeleteClient(ctx context.Context, clientID uuid.UUID) apperrors.Error {
	query := `DELETE FROM clients WHERE id = $1;`
	if _, err := s.q.ExecContext(ctx, query, clientID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to delete client")
		return ErrRegistry.Err(err)
	}
	return nil
}

// CreateClientDatabase persists the credential record for a client's
// isolated database.
func (s *sqlStore) CreateClientDatabase(ctx context.Context, rec *ClientDatabase) apperrors.Error {
	if rec.ClientID == uuid.Nil || rec.DBName == "" || rec.DBUser == "" {
		return ErrInvalidInput.Msg("client id, database name, and role are required")
	}
	if len(rec.EncryptedPassword) == 0 {
		return ErrInvalidInput.Msg("encrypted password is required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO client_databases (id, client_id, db_name, db_host, db_port, db_user, encrypted_password)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at;
	`

	row := s.q.QueryRowContext(ctx, query,
		rec.ID, rec.ClientID, rec.DBName, rec.DBHost, rec.DBPort, rec.DBUser, rec.EncryptedPassword)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists.Msg("database record already exists for client")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", rec.ClientID.String()).Msg("failed to insert client database record")
		return ErrRegistry.Err(err)
	}
	return nil
}

// GetClientDatabase retrieves the database credential record for a
// client. A missing record is a hard failure for pool resolution.
func (s *sqlStore) GetClientDatabase(ctx context.Context, clientID uuid.UUID) (*ClientDatabase, apperrors.Error) {
	query := `
		SELECT id, client_id, db_name, db_host, db_port, db_user, encrypted_password, created_at
		FROM client_databases
		WHERE client_id = $1;
	`

	var rec ClientDatabase
	row := s.q.QueryRowContext(ctx, query, clientID)
	if err := row.Scan(&rec.ID, &rec.ClientID, &rec.DBName, &rec.DBHost,
		&rec.DBPort, &rec.DBUser, &rec.EncryptedPassword, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound.Msg("no database record for client")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to retrieve client database record")
		return nil, ErrRegistry.Err(err)
	}
	return &rec, nil
}

// DeleteClientDatabase removes the database credential record for a
// client. Absent records are tolerated.
func (s *sqlStore) DeleteClientDatabase(ctx context.Context, clientID uuid.UUID) apperrors.Error {
	query := `DELETE FROM client_databases WHERE client_id = $1;`
	if _, err := s.q.ExecContext(ctx, query, clientID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to delete client database record")
		return ErrRegistry.Err(err)
	}
	return nil
}

// CreateClientBucket persists the bucket record for a client.
func (s *sqlStore) CreateClientBucket(ctx context.Context, rec *ClientBucket) apperrors.Error {
	if rec.ClientID == uuid.Nil || rec.BucketName == "" {
		return ErrInvalidInput.Msg("client id and bucket name are required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO client_buckets (id, client_id, bucket_name)
		VALUES ($1, $2, $3)
		RETURNING created_at;
	`

	row := s.q.QueryRowContext(ctx, query, rec.ID, rec.ClientID, rec.BucketName)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists.Msg("bucket record already exists for client")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", rec.ClientID.String()).Msg("failed to insert client bucket record")
		return ErrRegistry.Err(err)
	}
	return nil
}

// GetClientBucket retrieves the bucket record for a client.
func (s *sqlStore) GetClientBucket(ctx context.Context, clientID uuid.UUID) (*ClientBucket, apperrors.Error) {
	query := `
		SELECT id, client_id, bucket_name, created_at
		FROM client_buckets
		WHERE client_id = $1;
	`

	var rec ClientBucket
	row := s.q.QueryRowContext(ctx, query, clientID)
	if err := row.Scan(&rec.ID, &rec.ClientID, &rec.BucketName, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound.Msg("no bucket record for client")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to retrieve client bucket record")
		return nil, ErrRegistry.Err(err)
	}
	return &rec, nil
}

// DeleteClientBucket removes the bucket record for a client. Absent
// records are tolerated.
func (s *sqlStore) DeleteClientBucket(ctx context.Context, clientID uuid.UUID) apperrors.Error {
	query := `DELETE FROM client_buckets WHERE client_id = $1;`
	if _, err := s.q.ExecContext(ctx, query, clientID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to delete client bucket record")
		return ErrRegistry.Err(err)
	}
	return nil
}
