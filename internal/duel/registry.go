package duel

import (
	"sync"

	"github.com/google/uuid"
)

// Session is a registry entry: the live duel plus the synchronization state
// its two participant connections share. All duel mutation must happen with
// the session lock held.
type Session struct {
	ID   uuid.UUID
	Duel *Duel

	mu       sync.Mutex
	finalize sync.Once
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Finalize runs fn at most once for this session, no matter how many
// connections observe the duel's end concurrently.
func (s *Session) Finalize(fn func()) {
	s.finalize.Do(fn)
}

// Registry maps duel identifiers to live sessions. It is the only mutable
// state shared across participant connections; per-duel mutation is guarded
// by each session's own lock, not by the registry lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// GetOrCreate returns the session for id, building its duel with factory when
// none exists yet. Concurrent first callers observe the same session; the
// factory runs at most once per insert and never replaces an existing entry.
func (r *Registry) GetOrCreate(id uuid.UUID, factory func() *Duel) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id, Duel: factory()}
	r.sessions[id] = s
	return s
}

// Get returns the live session for id, or nil when absent. Absence is a
// normal outcome, not an error.
func (r *Registry) Get(id uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove evicts the session for id. Removing an absent id is a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports how many duels are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
