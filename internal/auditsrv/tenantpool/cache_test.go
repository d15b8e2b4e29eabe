package tenantpool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestra/attestra/internal/auditsrv/config"
	"github.com/attestra/attestra/internal/auditsrv/registry"
	"github.com/attestra/attestra/internal/auditsrv/secrets"
	"github.com/attestra/attestra/internal/common/apperrors"
	"github.com/attestra/attestra/internal/common/uuid"
)

func TestMain(m *testing.M) {
	config.TestInit()
	m.Run()
}

// fakeHandle is a controllable pool handle. pingErr can be swapped to
// simulate a pool going stale.
type fakeHandle struct {
	mu      sync.Mutex
	pingErr error
	pings   int
	closed  bool
}

func (h *fakeHandle) DB() *sql.DB { return nil }

func (h *fakeHandle) PingContext(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pings++
	return h.pingErr
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) setPingErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pingErr = err
}

// fakeRegistry serves credential records for a fixed set of clients.
type fakeRegistry struct {
	records map[uuid.UUID]*registry.ClientDatabase
}

func (r *fakeRegistry) GetClientDatabase(_ context.Context, clientID uuid.UUID) (*registry.ClientDatabase, apperrors.Error) {
	rec, ok := r.records[clientID]
	if !ok {
		return nil, registry.ErrNotFound.Msg("no database record for client")
	}
	return rec, nil
}

func encryptedTestPassword(t *testing.T) []byte {
	t.Helper()
	blob, err := secrets.Encrypt([]byte(secrets.NewPassword()), config.Config().Secrets.CredentialEncryptionPasswd)
	require.Nil(t, err)
	return blob
}

func newTestCache(t *testing.T, clientIDs ...uuid.UUID) (*Cache, map[uuid.UUID]*fakeHandle) {
	t.Helper()
	reg := &fakeRegistry{records: make(map[uuid.UUID]*registry.ClientDatabase)}
	for _, id := range clientIDs {
		reg.records[id] = &registry.ClientDatabase{
			ClientID:          id,
			DBName:            "aud_" + id.String()[:8],
			DBHost:            "localhost",
			DBPort:            5432,
			DBUser:            "aud_" + id.String()[:8],
			EncryptedPassword: encryptedTestPassword(t),
		}
	}

	handles := make(map[uuid.UUID]*fakeHandle)
	var mu sync.Mutex

	c := NewCache(reg)
	c.open = func(_ context.Context, _ string) (Handle, error) {
		h := &fakeHandle{}
		mu.Lock()
		// the most recent handle per test is tracked by DSN ordering;
		// tests with a single client just read their one entry
		for id := range reg.records {
			handles[id] = h
		}
		mu.Unlock()
		return h, nil
	}
	return c, handles
}

func TestGetUnknownClient(t *testing.T) {
	c, _ := newTestCache(t)

	h, err := c.Get(context.Background(), uuid.New())
	assert.Nil(t, h)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestGetBuildsAndCaches(t *testing.T) {
	clientID := uuid.New()
	c, _ := newTestCache(t, clientID)

	h1, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	require.NotNil(t, h1)
	assert.Equal(t, uint64(1), c.Builds())
	assert.Equal(t, 1, c.Len())

	// second call hits the cache, no rebuild
	h2, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, uint64(1), c.Builds())
}

func TestConcurrentGetBuildsOnce(t *testing.T) {
	clientID := uuid.New()
	c, _ := newTestCache(t, clientID)

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]apperrors.Error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), clientID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.Nil(t, err)
	}
	assert.Equal(t, uint64(1), c.Builds(), "concurrent callers must share one pool build")
	assert.Equal(t, 1, c.Len())
}

func TestEvictThenGetRebuilds(t *testing.T) {
	clientID := uuid.New()
	c, handles := newTestCache(t, clientID)

	_, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	first := handles[clientID]

	c.Evict(clientID)
	assert.Equal(t, 0, c.Len())
	assert.True(t, first.isClosed())

	h, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	require.NotNil(t, h)
	assert.NotSame(t, Handle(first), h)
	assert.Equal(t, uint64(2), c.Builds())
}

func TestEvictUnknownClientIsNoop(t *testing.T) {
	c, _ := newTestCache(t)
	c.Evict(uuid.New())
	assert.Equal(t, 0, c.Len())
}

func TestUnhealthyPoolIsRebuilt(t *testing.T) {
	clientID := uuid.New()
	c, handles := newTestCache(t, clientID)

	h1, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	first := handles[clientID]
	require.Same(t, Handle(first), h1)

	// simulate the tenant database dropping the pool's connections
	first.setPingErr(errors.New("connection reset by peer"))

	h2, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	require.NotNil(t, h2)
	assert.NotSame(t, h1, h2)
	assert.True(t, first.isClosed(), "stale pool must be closed on eviction")
	assert.Equal(t, uint64(2), c.Builds())

	// the replacement handle starts healthy again
	second := handles[clientID]
	first.setPingErr(nil)
	h3, err := c.Get(context.Background(), clientID)
	require.Nil(t, err)
	assert.Same(t, Handle(second), h3)
}

func TestNewPoolFailingProbeIsReleased(t *testing.T) {
	clientID := uuid.New()
	c, _ := newTestCache(t, clientID)

	var opened *fakeHandle
	c.open = func(_ context.Context, _ string) (Handle, error) {
		opened = &fakeHandle{pingErr: errors.New("password authentication failed")}
		return opened, nil
	}

	h, err := c.Get(context.Background(), clientID)
	assert.Nil(t, h)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrPoolCreation)
	require.NotNil(t, opened)
	assert.True(t, opened.isClosed(), "partially constructed pool must be released")
	assert.Equal(t, 0, c.Len(), "failed build must not mutate the cache")
	assert.Equal(t, uint64(0), c.Builds())
}

func TestOpenFailure(t *testing.T) {
	clientID := uuid.New()
	c, _ := newTestCache(t, clientID)

	c.open = func(_ context.Context, _ string) (Handle, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	h, err := c.Get(context.Background(), clientID)
	assert.Nil(t, h)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrPoolCreation)
}

func TestCorruptCredentialBlob(t *testing.T) {
	clientID := uuid.New()
	reg := &fakeRegistry{records: map[uuid.UUID]*registry.ClientDatabase{
		clientID: {
			ClientID:          clientID,
			DBName:            "aud_corrupt1",
			DBHost:            "localhost",
			DBPort:            5432,
			DBUser:            "aud_corrupt1",
			EncryptedPassword: []byte("not a valid blob"),
		},
	}}
	c := NewCache(reg)

	h, err := c.Get(context.Background(), clientID)
	assert.Nil(t, h)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, secrets.ErrDecryption)
	assert.Equal(t, 0, c.Len())
}

func TestCloseAll(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c, _ := newTestCache(t, a, b)

	ha, err := c.Get(context.Background(), a)
	require.Nil(t, err)
	hb, err := c.Get(context.Background(), b)
	require.Nil(t, err)
	assert.Equal(t, 2, c.Len())

	c.CloseAll()
	assert.Equal(t, 0, c.Len())
	assert.True(t, ha.(*fakeHandle).isClosed())
	assert.True(t, hb.(*fakeHandle).isClosed())
}
