package selection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultSessionTTL is how long an idle session keeps its selection before
// the registry evicts it.
const DefaultSessionTTL = 4 * time.Hour

// Registry hands out one Manager per dashboard session and evicts sessions
// that have gone idle. It enforces the ownership rule: a session ID always
// maps to the same Manager, and no Manager is ever shared between sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	clock    clockwork.Clock
	ttl      time.Duration
	logger   *slog.Logger
}

type sessionEntry struct {
	manager  *Manager
	lastSeen time.Time
}

// NewRegistry creates a session registry. A nil clock uses the real one; a
// non-positive ttl falls back to DefaultSessionTTL.
func NewRegistry(clock clockwork.Clock, ttl time.Duration, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		clock:    clock,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "selection_registry")),
	}
}

// Get returns the session's manager, creating it via the factory on first
// sight. Every call refreshes the session's idle timer and sweeps expired
// sessions.
func (r *Registry) Get(sessionID string, create func() *Manager) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.sweepLocked(now)

	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{manager: create()}
		r.sessions[sessionID] = entry
		r.logger.Debug("session created", slog.String("session_id", sessionID))
	}
	entry.lastSeen = now
	return entry.manager
}

// SyncAll reconciles every live session with a reloaded dataset's pollster
// list.
func (r *Registry) SyncAll(known []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.sessions {
		entry.manager.Sync(known)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked(now time.Time) {
	for id, entry := range r.sessions {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.sessions, id)
			r.logger.Debug("session expired", slog.String("session_id", id))
		}
	}
}
