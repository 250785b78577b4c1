// Package testutil wires an injector against in-memory SQLite and miniredis.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"voucherwheel/internal/datastore"
	"voucherwheel/internal/interfaces"
	"voucherwheel/internal/pkg/caching"
	"voucherwheel/internal/pkg/database"
	"voucherwheel/internal/pkg/limiter"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type Env struct {
	Container *do.Injector
	DB        *bun.DB
	Redis     *miniredis.Miniredis
	Limiter   *FakeLimiter
}

// New returns a fresh environment over in-memory SQLite with the schema
// created. Everything is torn down when the test ends.
func New(t *testing.T) *Env {
	t.Helper()

	return newEnv(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

// NewPooled is New over a WAL-mode SQLite file reachable through several
// connections at once, so concurrent statements really interleave.
// Transactions begin IMMEDIATE and wait up to five seconds for the writer lock.
func NewPooled(t *testing.T, conns int) *Env {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voucherwheel.db")
	env := newEnv(t, fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path))
	env.DB.SetMaxOpenConns(conns)
	env.DB.SetMaxIdleConns(conns)
	return env
}

func newEnv(t *testing.T, dsn string) *Env {
	t.Helper()

	db, err := database.Open(dsn, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, datastore.CreateSchema(context.Background(), db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fake := &FakeLimiter{}
	injector := do.New()
	do.ProvideValue(injector, db)
	do.ProvideNamedValue(injector, "db-readonly", db)
	do.ProvideNamedValue[redis.UniversalClient](injector, "redis-cache", client)
	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		return caching.NewCacheRedis(client, false)
	})
	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		return caching.NewCacheRedis(client, false)
	})
	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		return redsync.New(goredis.NewPool(client)), nil
	})
	do.ProvideValue[interfaces.Limiter](injector, fake)

	return &Env{injector, db, mr, fake}
}

// FakeLimiter allows every call until Budget is set, then allows that many
// calls per key.
type FakeLimiter struct {
	Budget int

	mu    sync.Mutex
	spent map[string]int
}

func (l *FakeLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Budget <= 0 {
		return nil
	}
	if l.spent == nil {
		l.spent = make(map[string]int)
	}
	if l.spent[key] >= l.Budget {
		return limiter.ErrRateLimited
	}
	l.spent[key]++
	return nil
}
