// Package session keeps one controller per browser session in memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"merabuchpan/internal/controller"
	"merabuchpan/internal/domain"
)

// Factory builds the controller for a new session.
type Factory func() *controller.Controller

type entry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// Store maps session ids to controllers and expires idle ones.
type Store struct {
	ttl     time.Duration
	max     int
	factory Factory
	now     func() time.Time
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(s *Store) { s.max = n }
}

// WithLogger sets the janitor logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store. A ttl of zero disables expiry.
func NewStore(ttl time.Duration, factory Factory, opts ...Option) *Store {
	s := &Store{
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		logger:   zerolog.Nop(),
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the controller for id and marks the session as active.
func (s *Store) Get(id string) (*controller.Controller, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return e.ctrl, nil
}

// Create starts a new session and returns its id. When the store is at its
// cap, idle sessions are swept first; ErrSessionLimit is returned if that
// frees nothing.
func (s *Store) Create() (string, *controller.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.max > 0 && len(s.sessions) >= s.max {
		if n := s.sweepLocked(now); n > 0 {
			s.logger.Debug().Int("removed", n).Msg("expired sessions swept on create")
		}
		if len(s.sessions) >= s.max {
			s.logger.Warn().Int("max", s.max).Msg("session limit reached")
			return "", nil, domain.ErrSessionLimit
		}
	}
	id := uuid.NewString()
	ctrl := s.factory()
	s.sessions[id] = &entry{ctrl: ctrl, lastSeen: now}
	return id, ctrl, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the ttl. Sessions with a
// generation in flight are kept. It returns the number removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.After(cutoff) {
			continue
		}
		if e.ctrl.State() == domain.StateLoading {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("removed", n).Int("live", s.Len()).Msg("expired sessions swept")
			}
		}
	}
}
