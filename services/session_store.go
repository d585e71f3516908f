package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type sessionEntry[T io.Closer] struct {
	item     T
	lastSeen time.Time
}

// SessionStore keeps live engines by id until they are removed or sit idle
// past the janitor's timeout.
type SessionStore[T io.Closer] struct {
	mu    sync.Mutex
	clock clockwork.Clock
	items map[string]*sessionEntry[T]
}

type SessionStoreOption func(*sessionStoreConfig)

type sessionStoreConfig struct {
	clock clockwork.Clock
}

// WithSessionClock sets the clock used for idle tracking.
func WithSessionClock(c clockwork.Clock) SessionStoreOption {
	return func(cfg *sessionStoreConfig) { cfg.clock = c }
}

func NewSessionStore[T io.Closer](opts ...SessionStoreOption) *SessionStore[T] {
	cfg := sessionStoreConfig{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SessionStore[T]{clock: cfg.clock, items: map[string]*sessionEntry[T]{}}
}

// NewID returns a fresh session id. Engines that push updates need their id
// before they are built.
func (s *SessionStore[T]) NewID() string { return uuid.NewString() }

// Put stores item under id, closing whatever was there before.
func (s *SessionStore[T]) Put(id string, item T) {
	s.mu.Lock()
	prev, ok := s.items[id]
	s.items[id] = &sessionEntry[T]{item: item, lastSeen: s.clock.Now()}
	s.mu.Unlock()

	if ok {
		_ = prev.item.Close()
	}
}

// Get returns the session and marks it as used.
func (s *SessionStore[T]) Get(id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	entry.lastSeen = s.clock.Now()
	return entry.item, nil
}

// Remove closes and forgets the session.
func (s *SessionStore[T]) Remove(id string) error {
	s.mu.Lock()
	entry, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return entry.item.Close()
}

func (s *SessionStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Expire closes and forgets every session unused for at least idle, and
// returns how many went. A non-positive idle expires nothing.
func (s *SessionStore[T]) Expire(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-idle)

	s.mu.Lock()
	var stale []T
	for id, entry := range s.items {
		if !entry.lastSeen.After(cutoff) {
			stale = append(stale, entry.item)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, item := range stale {
		_ = item.Close()
	}
	return len(stale)
}

// RunJanitor expires idle sessions every interval until ctx is done.
func (s *SessionStore[T]) RunJanitor(ctx context.Context, every, idle time.Duration, logger zerolog.Logger) {
	if every <= 0 || idle <= 0 {
		return
	}
	ticker := s.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.Expire(idle); n > 0 {
				logger.Info().Int("expired", n).Int("live", s.Len()).Msg("🧹 idle sessions closed")
			}
		}
	}
}

// CloseAll closes and forgets every session.
func (s *SessionStore[T]) CloseAll() error {
	s.mu.Lock()
	items := s.items
	s.items = map[string]*sessionEntry[T]{}
	s.mu.Unlock()

	var errs []error
	for id, entry := range items {
		if err := entry.item.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
