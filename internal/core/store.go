package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session survives.
const DefaultSessionTTL = 2 * time.Hour

// Store keeps wizard sessions in memory. Nothing is persisted: a restart
// starts every visitor over at the input step.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	pageSize int
	now      func() time.Time
}

// NewStore creates an empty store. Idle sessions older than ttl are removed
// by the janitor.
func NewStore(ttl time.Duration, defaultPageSize int) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
}

// Get returns the session for id and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// Create starts a new session with a random ID.
func (s *Store) Create() *Session {
	sess := NewSession(uuid.NewString())
	sess.SetDefaultPageSize(s.pageSize)
	sess.touch(s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown
// or expired.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}
	return s.Create(), true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			sess.mu.Lock()
			sess.stopAutoSubmit()
			sess.mu.Unlock()
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n, "remaining", s.Len())
			}
		}
	}
}
