package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
)

func TestStore_CreateGetDelete(t *testing.T) {
	s := NewStore(StoreConfig{})

	sess, err := s.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))

	_, err = s.Get(sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSession_With(t *testing.T) {
	s := NewStore(StoreConfig{})
	sess, err := s.Create()
	require.NoError(t, err)

	var empty bool
	sess.With(func(c *cart.Cart) { empty = c.IsEmpty() })
	assert.True(t, empty)
}

func TestStore_MaxSessions(t *testing.T) {
	s := NewStore(StoreConfig{MaxSessions: 2})

	_, err := s.Create()
	require.NoError(t, err)
	_, err = s.Create()
	require.NoError(t, err)

	_, err = s.Create()
	require.ErrorIs(t, err, ErrTooManySessions)
}

func TestStore_Evict(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewStore(StoreConfig{IdleTTL: time.Minute})
	s.now = func() time.Time { return now }

	stale, err := s.Create()
	require.NoError(t, err)

	now = now.Add(50 * time.Second)
	fresh, err := s.Create()
	require.NoError(t, err)

	assert.Equal(t, 1, s.Evict(now.Add(30*time.Second)))

	_, err = s.Get(stale.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(fresh.ID)
	require.NoError(t, err)
}

func TestStore_GetRefreshesIdleTime(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s := NewStore(StoreConfig{IdleTTL: time.Minute})
	s.now = func() time.Time { return now }

	sess, err := s.Create()
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = s.Get(sess.ID)
	require.NoError(t, err)

	assert.Zero(t, s.Evict(now.Add(45*time.Second)))
	assert.Equal(t, 1, s.Len())
}

func TestStore_EvictDisabled(t *testing.T) {
	s := NewStore(StoreConfig{})
	_, err := s.Create()
	require.NoError(t, err)

	assert.Zero(t, s.Evict(time.Now().Add(24*time.Hour)))
}

func TestStore_StartCleanup(t *testing.T) {
	s := NewStore(StoreConfig{IdleTTL: time.Millisecond})
	_, err := s.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evicted := make(chan int, 1)
	s.StartCleanup(ctx, 5*time.Millisecond, func(n int) {
		select {
		case evicted <- n:
		default:
		}
	})

	select {
	case n := <-evicted:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted")
	}
	assert.Zero(t, s.Len())
}
