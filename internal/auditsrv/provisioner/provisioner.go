// Package provisioner creates and tears down the isolated infrastructure
// backing each client: a dedicated PostgreSQL database and role, plus an
// object-storage bucket, with the registry as the system of record.
//
// Onboarding is ordered so infrastructure exists before the registry
// transaction commits: if the registry write fails, the orphaned
// database and bucket are logged and left for out-of-band cleanup rather
// than auto-dropped, because without a registry row they are unreachable.
// Teardown is the mirror image: infrastructure removal is best-effort and
// never blocks the registry deletion, which is the authoritative signal
// that the client is gone.
package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/auditsrv/secrets"
	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/uuid"
)

// BucketStore is the bucket lifecycle surface the provisioner needs from
// object storage.
type BucketStore interface {
	EnsureBucket(ctx context.Context, name string) apperrors.Error
	PurgeBucket(ctx context.Context, name string) apperrors.Error
	RemoveBucket(ctx context.Context, name string) apperrors.Error
}

// PoolEvictor evicts a client's cached connection pool. Implemented by
// the tenant pool cache.
type PoolEvictor interface {
	Evict(clientID uuid.UUID)
}

// AdminExecutor issues administrative SQL against the control-plane
// connection. Satisfied by *sql.DB.
type AdminExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ProvisionRequest carries the attributes of a new client organization.
type ProvisionRequest struct {
	Name        string
	POCEmail    string
	EmailDomain string
}

// Provisioner orchestrates client onboarding and offboarding.
type Provisioner struct {
	reg     registry.Store
	admin   AdminExecutor
	buckets BucketStore
	pools   PoolEvictor
}

// New returns a Provisioner using the given collaborators. admin must be
// a connection with privileges to create and drop databases and roles.
func New(reg registry.Store, admin AdminExecutor, buckets BucketStore, pools PoolEvictor) *Provisioner {
	return &Provisioner{
		reg:     reg,
		admin:   admin,
		buckets: buckets,
		pools:   pools,
	}
}

// ProvisionClient onboards a new client: creates its isolated database,
// role, and bucket, then persists the client row and credential records
// in a single registry transaction. The generated password is encrypted
// before persistence and never leaves this function.
func (p *Provisioner) ProvisionClient(ctx context.Context, req ProvisionRequest) (*registry.Client, apperrors.Error) {
	if req.Name == "" || req.POCEmail == "" {
		return nil, ErrInvalidRequest.Msg("client name and contact email are required")
	}

	clientID := uuid.New()
	dbName := DatabaseName(clientID)
	roleName := RoleName(clientID)
	bucketName := BucketName(clientID)
	password := secrets.NewPassword()

	log.Ctx(ctx).Info().
		Str("client_id", clientID.String()).
		Str("db_name", dbName).
		Str("bucket_name", bucketName).
		Msg("provisioning client infrastructure")

	if aerr := p.createInfrastructure(ctx, dbName, roleName, bucketName, password); aerr != nil {
		return nil, aerr
	}

	encrypted, aerr := secrets.Encrypt([]byte(password), config.Config().Secrets.CredentialEncryptionPasswd)
	if aerr != nil {
		log.Ctx(ctx).Error().
			Str("client_id", clientID.String()).
			Str("db_name", dbName).
			Str("bucket_name", bucketName).
			Msg("credential encryption failed; provisioned infrastructure is orphaned")
		return nil, ErrProvisioning.MsgErr("unable to encrypt credentials", aerr)
	}

	client := &registry.Client{
		ID:          clientID,
		Name:        req.Name,
		POCEmail:    req.POCEmail,
		EmailDomain: req.EmailDomain,
		Status:      registry.ClientStatusActive,
	}
	tcfg := config.Config().TenantDB
	dbRec := &registry.ClientDatabase{
		ClientID:          clientID,
		DBName:            dbName,
		DBHost:            tcfg.Host,
		DBPort:            tcfg.Port,
		DBUser:            roleName,
		EncryptedPassword: encrypted,
	}
	bucketRec := &registry.ClientBucket{
		ClientID:   clientID,
		BucketName: bucketName,
	}

	// All three rows commit together; a failure strands the created
	// infrastructure, not a half-onboarded client.
	err := retry.Do(func() error {
		return p.reg.WithTx(ctx, func(tx registry.Store) apperrors.Error {
			if err := tx.CreateClient(ctx, client); err != nil {
				return err
			}
			if err := tx.CreateClientDatabase(ctx, dbRec); err != nil {
				return err
			}
			return tx.CreateClientBucket(ctx, bucketRec)
		})
	},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// conflicts and validation failures will not heal on retry
			return !errors.Is(err, registry.ErrAlreadyExists) && !errors.Is(err, registry.ErrInvalidInput)
		}),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("client_id", clientID.String()).
			Str("db_name", dbName).
			Str("bucket_name", bucketName).
			Msg("registry persistence failed; provisioned infrastructure is orphaned")
		var aerr apperrors.Error
		if errors.As(err, &aerr) && errors.Is(aerr, registry.ErrAlreadyExists) {
			return nil, ErrProvisioning.MsgErr("generated resource name collision", err).SetStatusCode(aerr.StatusCode())
		}
		return nil, ErrProvisioning.MsgErr("unable to persist client records", err)
	}

	log.Ctx(ctx).Info().Str("client_id", clientID.String()).Msg("client provisioned")
	return client, nil
}

// createInfrastructure issues the administrative statements that create
// the client's database, role, and bucket. Identifiers and literals are
// quoted; generated names never contain user input.
func (p *Provisioner) createInfrastructure(ctx context.Context, dbName, roleName, bucketName, password string) apperrors.Error {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)),
		fmt.Sprintf("CREATE USER %s WITH PASSWORD %s", pq.QuoteIdentifier(roleName), pq.QuoteLiteral(password)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", pq.QuoteIdentifier(dbName), pq.QuoteIdentifier(roleName)),
	}

	for _, stmt := range stmts {
		if _, err := p.admin.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("db_name", dbName).
				Msg("administrative statement failed during provisioning")
			return ErrProvisioning.MsgErr("unable to create tenant database", err)
		}
	}

	if aerr := p.buckets.EnsureBucket(ctx, bucketName); aerr != nil {
		log.Ctx(ctx).Error().
			Str("db_name", dbName).
			Str("bucket_name", bucketName).
			Msg("bucket creation failed; created database and role are orphaned")
		return ErrProvisioning.MsgErr("unable to create tenant bucket", aerr)
	}
	return nil
}

// DeprovisionClient offboards a client. The cached pool is evicted first
// so no handle can outlive the credential records. Infrastructure
// teardown failures are logged and suppressed; the registry deletion must
// still succeed so the tenant is logically gone and the name can be
// reused.
func (p *Provisioner) DeprovisionClient(ctx context.Context, clientID uuid.UUID) apperrors.Error {
	if _, aerr := p.reg.GetClient(ctx, clientID); aerr != nil {
		return aerr
	}

	p.pools.Evict(clientID)

	dbRec, aerr := p.reg.GetClientDatabase(ctx, clientID)
	if aerr != nil && !errors.Is(aerr, registry.ErrNotFound) {
		return aerr
	}
	bucketRec, aerr := p.reg.GetClientBucket(ctx, clientID)
	if aerr != nil && !errors.Is(aerr, registry.ErrNotFound) {
		return aerr
	}

	if bucketRec != nil {
		p.teardownBucket(ctx, clientID, bucketRec.BucketName)
	}
	if dbRec != nil {
		p.teardownDatabase(ctx, clientID, dbRec.DBName, dbRec.DBUser)
	}

	err := retry.Do(func() error {
		return p.reg.WithTx(ctx, func(tx registry.Store) apperrors.Error {
			if err := tx.DeleteClientDatabase(ctx, clientID); err != nil {
				return err
			}
			if err := tx.DeleteClientBucket(ctx, clientID); err != nil {
				return err
			}
			return tx.DeleteClient(ctx, clientID)
		})
	},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("registry deletion failed during deprovisioning")
		var aerr apperrors.Error
		if errors.As(err, &aerr) {
			return aerr
		}
		return registry.ErrRegistry.Err(err)
	}

	// evict again in case a concurrent request rebuilt the pool while
	// teardown was in flight
	p.pools.Evict(clientID)

	log.Ctx(ctx).Info().Str("client_id", clientID.String()).Msg("client deprovisioned")
	return nil
}

// teardownBucket removes the bucket's contents and the bucket itself.
// Best-effort.
func (p *Provisioner) teardownBucket(ctx context.Context, clientID uuid.UUID, bucketName string) {
	if aerr := p.buckets.PurgeBucket(ctx, bucketName); aerr != nil {
		log.Ctx(ctx).Error().Err(aerr).
			Str("client_id", clientID.String()).
			Str("bucket_name", bucketName).
			Msg("failed to purge bucket contents; continuing teardown")
	}
	if aerr := p.buckets.RemoveBucket(ctx, bucketName); aerr != nil {
		log.Ctx(ctx).Error().Err(aerr).
			Str("client_id", clientID.String()).
			Str("bucket_name", bucketName).
			Msg("failed to remove bucket; continuing teardown")
	}
}

// teardownDatabase terminates active sessions and drops the database and
// role. Best-effort.
func (p *Provisioner) teardownDatabase(ctx context.Context, clientID uuid.UUID, dbName, roleName string) {
	stmts := []string{
		fmt.Sprintf("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = %s AND pid <> pg_backend_pid()", pq.QuoteLiteral(dbName)),
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(dbName)),
		fmt.Sprintf("DROP USER IF EXISTS %s", pq.QuoteIdentifier(roleName)),
	}

	for _, stmt := range stmts {
		if _, err := p.admin.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("client_id", clientID.String()).
				Str("db_name", dbName).
				Msg("administrative statement failed during teardown; continuing")
		}
	}
}
