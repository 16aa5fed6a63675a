package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valvenet/internal/domain"
)

func TestResultCache(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := New(&redis.Options{Addr: mr.Addr()}, time.Hour)
		defer c.Close()
		ctx := context.Background()

		_, ok, err := c.Get(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)

		want := domain.Scores{Single: 1651, Dual: 1707, FlowValves: 6}
		require.NoError(t, c.Put(ctx, "abc", want))

		got, ok, err := c.Get(ctx, "abc")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
		assert.True(t, mr.Exists(Key("abc")))
	})

	t.Run("entries expire", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := New(&redis.Options{Addr: mr.Addr()}, time.Minute)
		defer c.Close()
		ctx := context.Background()

		require.NoError(t, c.Put(ctx, "abc", domain.Scores{Single: 1}))
		mr.FastForward(2 * time.Minute)

		_, ok, err := c.Get(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt entry is an error", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := New(&redis.Options{Addr: mr.Addr()}, time.Minute)
		defer c.Close()

		require.NoError(t, mr.Set(Key("bad"), "not json"))
		_, _, err := c.Get(context.Background(), "bad")
		require.Error(t, err)
	})

	t.Run("open with url", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := Open(context.Background(), "redis://"+mr.Addr(), 0)
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, DefaultTTL, c.ttl)
	})
}
