package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/graphlab/pkg/adapters/redis"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newMiniredis(t)
	tests.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Keys(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", tests.NewCheckpoint("s1")))

	assert.True(t, mr.Exists("test:s1"))
	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("test:s1"))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", tests.NewCheckpoint("s1")))
	assert.Equal(t, time.Hour, mr.TTL(redis.DefaultPrefix+"s1"))

	mr.FastForward(2 * time.Hour)

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "live", tests.NewCheckpoint("live")))
	// An index entry whose expiry is in the past, as left behind by a dropped key.
	_, err := mr.ZAdd(redis.DefaultPrefix+"index", 1, "stale")
	require.NoError(t, err)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, sessions)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := newMiniredis(t)
	store := redis.NewFromClient(client)
	mr.Close()

	_, err := store.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
