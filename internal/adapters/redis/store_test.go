package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/sieve/internal/adapters/redis"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunReportStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Report{RunID: "r1"}))

	assert.True(t, mr.Exists("custom:r1"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"r1"))
	require.NoError(t, store.Ping(ctx))
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Report{RunID: "short-lived"}))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"short-lived"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "short-lived")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}
