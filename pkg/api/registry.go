package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyerfyer/logic-blocks/pkg/metrics"
	"github.com/fyerfyer/logic-blocks/pkg/puzzle"
	"github.com/fyerfyer/logic-blocks/pkg/surface"
	"github.com/fyerfyer/logic-blocks/pkg/utils"
)

// ErrSessionNotFound is returned for unknown or evicted session ids
var ErrSessionNotFound = errors.New("session not found")

// entry serialises every request that touches one session
type entry struct {
	mu       sync.Mutex
	session  *puzzle.Session
	surface  *surface.Surface
	lastUsed time.Time
}

// Registry holds the live sessions keyed by id
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		metrics: m,
		now:     time.Now,
	}
}

// Add stores a session under a fresh id
func (r *Registry) Add(session *puzzle.Session, logger *utils.Logger) string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{
		session:  session,
		surface:  surface.New(session, logger),
		lastUsed: r.now(),
	}
	r.metrics.SetActiveSessions(len(r.entries))
	return id
}

// With runs fn while holding the session's lock
func (r *Registry) With(id string, fn func(*entry) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = r.now()
	return fn(e)
}

// Delete removes a session
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	r.metrics.SetActiveSessions(len(r.entries))
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions idle for longer than ttl and returns how many went
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.entries {
		if !e.mu.TryLock() {
			continue // in use
		}
		idle := e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.metrics.SetActiveSessions(len(r.entries))
	}
	return evicted
}
