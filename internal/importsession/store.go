package importsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
)

// DefaultTTL is how long an idle session is retained before the reaper
// removes it.
const DefaultTTL = 24 * time.Hour

// reapInterval is how often the reaper scans for idle sessions.
const reapInterval = 5 * time.Minute

// Store holds live sessions addressed by session ID and bounds server memory
// by reaping sessions idle beyond the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   logging.Logger
}

// NewStore creates a session store. A non-positive TTL falls back to
// DefaultTTL.
func NewStore(ttl time.Duration, logger logging.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Store{
		sessions: map[string]*Session{},
		ttl:      ttl,
		logger:   logger,
	}
}

// Create registers a new session with a server-generated opaque ID.
func (st *Store) Create(format models.Format) *Session {
	s := newSession(uuid.New().String(), format, time.Now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartReaper launches the background goroutine that removes idle sessions.
// It stops when the context is cancelled.
func (st *Store) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Reap(time.Now())
			}
		}
	}()
}

// Reap removes sessions idle beyond the TTL and returns how many were
// removed. Sessions with a commit in flight are skipped.
func (st *Store) Reap(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActivity)
		committing := s.committing
		s.mu.Unlock()
		if committing || idle < st.ttl {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	if removed > 0 {
		st.logger.Info("Reaped idle import sessions", logging.F(logging.FieldCount, removed))
	}
	return removed
}
