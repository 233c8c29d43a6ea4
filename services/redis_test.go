package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"wedding-registry/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisLockerSerializesKey(t *testing.T) {
	client, mr := newMiniRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "gift:1")
			require.NoError(t, err)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxSeen)
	assert.False(t, mr.Exists("LOCKFOR:gift:1"), "lease is released")
}

func TestRedisLockerKeysAreIndependent(t *testing.T) {
	client, _ := newMiniRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)

	unlockA, err := locker.Lock(context.Background(), "gift:a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "gift:b")
	require.NoError(t, err)
	unlockB()
}

func TestRedisLockerHonoursContext(t *testing.T) {
	client, _ := newMiniRedis(t)
	locker := NewRedisLocker(client, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "gift:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "gift:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock, err = locker.Lock(context.Background(), "gift:1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerUnlockKeepsForeignLease(t *testing.T) {
	client, mr := newMiniRedis(t)
	locker := NewRedisLocker(client, 100*time.Millisecond)

	unlockFirst, err := locker.Lock(context.Background(), "gift:1")
	require.NoError(t, err)

	// The first holder stalls past its TTL and a second holder takes over.
	mr.FastForward(200 * time.Millisecond)
	unlockSecond, err := locker.Lock(context.Background(), "gift:1")
	require.NoError(t, err)
	leaseHolder, err := mr.Get("LOCKFOR:gift:1")
	require.NoError(t, err)

	unlockFirst()
	assert.True(t, mr.Exists("LOCKFOR:gift:1"))
	current, err := mr.Get("LOCKFOR:gift:1")
	require.NoError(t, err)
	assert.Equal(t, leaseHolder, current)

	unlockSecond()
	assert.False(t, mr.Exists("LOCKFOR:gift:1"))
}

func TestReconcileWithRedisLockAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, mr := newMiniRedis(t)

	registry := NewGiftRegistry(f.db, client)
	ledger := NewContributionLedger(f.db, registry, f.gateways, NewRedisLocker(client, 5*time.Second), nil, LedgerConfig{
		Currency:        "BRL",
		MinContribution: 1,
		GatewayTimeout:  time.Second,
	})

	gift := f.gift(t, 1000, models.PaymentPartial)
	listed, err := registry.ListGifts(ctx, models.GiftFilter{}, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, mr.Exists(publicCachePrefix+"gifts:"))

	intent, err := ledger.Initiate(ctx, gift.ID, nil, models.InitiateContributionRequest{
		Contributor: "Ana", Amount: 300, Method: models.MethodPix,
	})
	require.NoError(t, err)
	f.approve(intent)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reconcile(ctx, intent.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, mr.Exists(publicCachePrefix+"gifts:"), "crediting drops cached listings")
	listed, err = registry.ListGifts(ctx, models.GiftFilter{}, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.EqualValues(t, 300, listed[0].AmountCollected)
}
