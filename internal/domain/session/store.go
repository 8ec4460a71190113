// Package session gives every API client its own cart. Carts are not safe for
// concurrent use, so a session serialises access to its cart.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Sentinel errors for session lookups.
var (
	ErrNotFound        = errors.New("cart not found")
	ErrTooManySessions = errors.New("too many open carts")
)

// Session owns one cart.
type Session struct {
	ID string

	mu       sync.Mutex
	cart     *cart.Cart
	lastSeen atomic.Int64 // unix nanoseconds
}

// Do runs f with exclusive access to the session cart.
func (s *Session) Do(f func(c *cart.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.cart)
}

// With is Do for callbacks that cannot fail.
func (s *Session) With(f func(c *cart.Cart)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.cart)
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// StoreConfig controls session limits.
type StoreConfig struct {
	// IdleTTL is how long an untouched session survives. Zero disables expiry.
	IdleTTL time.Duration
	// MaxSessions caps the number of open sessions. Zero means unlimited.
	MaxSessions int
}

// Store keeps sessions in memory.
type Store struct {
	cfg StoreConfig
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty Store.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session with an empty cart.
func (s *Store) Create() (*Session, error) {
	sess := &Session{
		ID:   uuid.New().String(),
		cart: cart.New(),
	}
	sess.touch(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete removes the session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Evict removes sessions idle for longer than IdleTTL and returns how many
// were removed.
func (s *Store) Evict(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.IdleTTL {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartCleanup evicts idle sessions every interval until ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration, onEvict func(n int)) {
	if s.cfg.IdleTTL <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.Evict(now); n > 0 && onEvict != nil {
					onEvict(n)
				}
			}
		}
	}()
}
