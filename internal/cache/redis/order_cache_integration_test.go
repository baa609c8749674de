//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/agrostore/internal/cache/redis"
	"github.com/Gunvolt24/agrostore/internal/domain"
	"github.com/Gunvolt24/agrostore/internal/testutil"
)

func newCache(t *testing.T, ttl time.Duration) (context.Context, *redis.OrderCache) {
	t.Helper()

	ctxStart, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancelStart)

	env, stop, err := testutil.StartRedisTC(ctxStart)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	client, err := redis.NewClient(ctx, env.Addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return ctx, redis.NewOrderCache(client, ttl, redis.WithKeyPrefix("itest:"+testutil.UniqSuffix()+":"))
}

func TestRedisCache_SetGetDelete_TC(t *testing.T) {
	ctx, c := newCache(t, time.Minute)

	_, ok := c.Get(ctx, "o-1")
	require.False(t, ok)

	ord := testutil.MakeOrder(testutil.WithItems(2))
	require.NoError(t, c.Set(ctx, &ord))

	got, ok := c.Get(ctx, ord.ID)
	require.True(t, ok)
	require.Equal(t, ord.ID, got.ID)
	require.Equal(t, domain.StatusPending, got.Status)
	require.Len(t, got.Items, 2)
	require.True(t, ord.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, c.Delete(ctx, ord.ID))
	_, ok = c.Get(ctx, ord.ID)
	require.False(t, ok)
}

func TestRedisCache_TTL_TC(t *testing.T) {
	ctx, c := newCache(t, time.Second)

	ord := testutil.MakeOrder()
	require.NoError(t, c.Set(ctx, &ord))

	// чтение внутри срока не продлевает его
	time.Sleep(600 * time.Millisecond)
	_, ok := c.Get(ctx, ord.ID)
	require.True(t, ok)

	time.Sleep(900 * time.Millisecond)
	_, ok = c.Get(ctx, ord.ID)
	require.False(t, ok)
}

func TestRedisCache_IgnoresOlderVersion_TC(t *testing.T) {
	ctx, c := newCache(t, time.Minute)

	stale := testutil.MakeOrder()
	fresh := stale
	fresh.Status = domain.StatusShipped
	fresh.UpdatedAt = stale.UpdatedAt.Add(time.Millisecond)

	require.NoError(t, c.Set(ctx, &fresh))
	require.NoError(t, c.Set(ctx, &stale))

	got, ok := c.Get(ctx, stale.ID)
	require.True(t, ok)
	require.Equal(t, domain.StatusShipped, got.Status)

	// WarmUp тоже не откатывает свежую запись
	require.NoError(t, c.WarmUp(ctx, []*domain.Order{&stale}))
	got, ok = c.Get(ctx, stale.ID)
	require.True(t, ok)
	require.Equal(t, domain.StatusShipped, got.Status)

	// равная версия перезаписывает
	same := fresh
	same.Status = domain.StatusDelivered
	require.NoError(t, c.Set(ctx, &same))
	got, ok = c.Get(ctx, stale.ID)
	require.True(t, ok)
	require.Equal(t, domain.StatusDelivered, got.Status)
}

func TestRedisCache_WarmUp_TC(t *testing.T) {
	ctx, c := newCache(t, time.Minute)

	a, b := testutil.MakeOrder(), testutil.MakeOrder()
	require.NoError(t, c.WarmUp(ctx, []*domain.Order{&a, nil, &b}))

	for _, id := range []string{a.ID, b.ID} {
		_, ok := c.Get(ctx, id)
		require.True(t, ok, "expected %s to be warmed up", id)
	}
	require.NoError(t, c.WarmUp(ctx, nil))
}
