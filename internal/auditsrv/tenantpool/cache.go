package tenantpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/auditsrv/secrets"
	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/uuid"
)

// CredentialSource is the slice of the registry the cache reads when
// building a pool.
type CredentialSource interface {
	GetClientDatabase(ctx context.Context, clientID uuid.UUID) (*registry.ClientDatabase, apperrors.Error)
}

// Cache is the concurrency-safe map from client identity to a live pool
// handle. It is an injected component with an explicit lifecycle, created
// once at startup and closed at shutdown.
type Cache struct {
	mu    sync.RWMutex
	pools map[uuid.UUID]Handle
	reg   CredentialSource
	open  OpenFunc

	builds uint64
}

// NewCache returns an empty cache reading credentials from reg.
func NewCache(reg CredentialSource) *Cache {
	return &Cache{
		pools: make(map[uuid.UUID]Handle),
		reg:   reg,
		open:  openTenantPool,
	}
}

// probe runs a bounded health check against a handle. The timeout keeps a
// dead tenant database from stalling callers, and in the rebuild path
// from holding the exclusive lock indefinitely.
func (c *Cache) probe(ctx context.Context, h Handle) error {
	ctx, cancel := context.WithTimeout(ctx, config.Config().TenantDB.GetProbeTimeoutOrDefault())
	defer cancel()
	return h.PingContext(ctx)
}

// Get returns a live, health-checked pool for the client, building one if
// none is cached or the cached one fails its probe. A successful return
// is always a handle whose probe just passed; the cache never hands out a
// handle known to be dead, and never silently substitutes a default pool
// on failure.
func (c *Cache) Get(ctx context.Context, clientID uuid.UUID) (Handle, apperrors.Error) {
	// fast path: read-locked lookup plus probe, no write lock
	c.mu.RLock()
	h, ok := c.pools[clientID]
	c.mu.RUnlock()
	if ok {
		if err := c.probe(ctx, h); err == nil {
			return h, nil
		}
		log.Ctx(ctx).Warn().Str("client_id", clientID.String()).Msg("cached tenant pool failed probe, rebuilding")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have rebuilt the entry while this caller waited
	// for the lock
	if h, ok := c.pools[clientID]; ok {
		if err := c.probe(ctx, h); err == nil {
			return h, nil
		}
		if err := h.Close(); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("failed to close stale tenant pool")
		}
		delete(c.pools, clientID)
	}

	h, aerr := c.build(ctx, clientID)
	if aerr != nil {
		return nil, aerr
	}
	c.pools[clientID] = h
	return h, nil
}

// build constructs and probes a new pool from the client's registry
// record. Called with the exclusive lock held. On failure any partially
// constructed handle is released and the map is left untouched.
func (c *Cache) build(ctx context.Context, clientID uuid.UUID) (Handle, apperrors.Error) {
	rec, aerr := c.reg.GetClientDatabase(ctx, clientID)
	if aerr != nil {
		return nil, aerr
	}

	password, derr := secrets.Decrypt(rec.EncryptedPassword, config.Config().Secrets.CredentialEncryptionPasswd)
	if derr != nil {
		log.Ctx(ctx).Error().Str("client_id", clientID.String()).Msg("unable to decrypt tenant credentials")
		return nil, derr
	}

	dsn := config.TenantDSN(rec.DBHost, rec.DBPort, rec.DBName, rec.DBUser, string(password))
	h, err := c.open(ctx, dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("unable to open tenant pool")
		return nil, ErrPoolCreation.Err(err)
	}

	if err := c.probe(ctx, h); err != nil {
		if cerr := h.Close(); cerr != nil {
			log.Ctx(ctx).Error().Err(cerr).Str("client_id", clientID.String()).Msg("failed to close unhealthy new pool")
		}
		log.Ctx(ctx).Error().Err(err).Str("client_id", clientID.String()).Msg("new tenant pool failed health probe")
		return nil, ErrPoolCreation.Msg("tenant database unreachable")
	}

	atomic.AddUint64(&c.builds, 1)
	log.Ctx(ctx).Info().Str("client_id", clientID.String()).Msg("tenant pool created")
	return h, nil
}

// Evict closes and removes the cached pool for the client. Safe to call
// when no entry exists.
func (c *Cache) Evict(clientID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.pools[clientID]
	if !ok {
		return
	}
	if err := h.Close(); err != nil {
		log.Error().Err(err).Str("client_id", clientID.String()).Msg("failed to close evicted tenant pool")
	}
	delete(c.pools, clientID)
}

// CloseAll closes every cached pool. Invoked once at process shutdown.
func (c *Cache) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for clientID, h := range c.pools {
		if err := h.Close(); err != nil {
			log.Error().Err(err).Str("client_id", clientID.String()).Msg("failed to close tenant pool during shutdown")
		}
		delete(c.pools, clientID)
	}
}

// Len returns the number of cached pools.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools)
}

// Builds returns the number of pools constructed over the cache's
// lifetime.
func (c *Cache) Builds() uint64 {
	return atomic.LoadUint64(&c.builds)
}
