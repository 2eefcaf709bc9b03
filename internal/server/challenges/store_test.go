package challenges

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	name    string
	store   Store
	advance func(time.Duration)
}

func newHarnesses(t *testing.T) []harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	mem := NewMemoryStore()
	mem.now = c.Now

	return []harness{
		{name: "redis", store: NewRedisStore(rdb), advance: mr.FastForward},
		{name: "memory", store: mem, advance: c.Advance},
	}
}

func TestStore_PutGetTake(t *testing.T) {
	for _, h := range newHarnesses(t) {
		t.Run(h.name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, h.store.Put(ctx, MFAPrefix+"tok", "user-1", time.Minute))

			v, err := h.store.Get(ctx, MFAPrefix+"tok")
			require.NoError(t, err)
			assert.Equal(t, "user-1", v)

			v, err = h.store.Take(ctx, MFAPrefix+"tok")
			require.NoError(t, err)
			assert.Equal(t, "user-1", v)

			_, err = h.store.Take(ctx, MFAPrefix+"tok")
			assert.ErrorIs(t, err, common.ErrorNotFound)
			_, err = h.store.Get(ctx, MFAPrefix+"tok")
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	for _, h := range newHarnesses(t) {
		t.Run(h.name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, h.store.Put(ctx, CaptchaPrefix+"c1", "123456", time.Minute))

			h.advance(2 * time.Minute)

			_, err := h.store.Get(ctx, CaptchaPrefix+"c1")
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestStore_Claim(t *testing.T) {
	for _, h := range newHarnesses(t) {
		t.Run(h.name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := h.store.Claim(ctx, SettlementPrefix+"mock_1", time.Hour)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.store.Claim(ctx, SettlementPrefix+"mock_1", time.Hour)
			require.NoError(t, err)
			assert.False(t, ok)

			h.advance(2 * time.Hour)
			ok, err = h.store.Claim(ctx, SettlementPrefix+"mock_1", time.Hour)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_Release(t *testing.T) {
	for _, h := range newHarnesses(t) {
		t.Run(h.name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := h.store.Claim(ctx, SettlementPrefix+"mock_2", time.Hour)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, h.store.Release(ctx, SettlementPrefix+"mock_2"))
			require.NoError(t, h.store.Release(ctx, SettlementPrefix+"mock_2"), "releasing twice is fine")

			ok, err = h.store.Claim(ctx, SettlementPrefix+"mock_2", time.Hour)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_ConcurrentTakeSingleWinner(t *testing.T) {
	for _, h := range newHarnesses(t) {
		t.Run(h.name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, h.store.Put(ctx, MFAPrefix+"race", "user-1", time.Minute))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := h.store.Take(ctx, MFAPrefix+"race"); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestRedisStore_BackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := NewRedisStore(rdb)

	mr.SetError("LOADING")
	_, err := s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	err = s.Put(context.Background(), "k", "v", time.Minute)
	assert.Error(t, err)
	_, err = s.Claim(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	assert.Error(t, s.Release(context.Background(), "k"))
}
