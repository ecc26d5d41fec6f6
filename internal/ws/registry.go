package ws

import (
	"sort"
	"sync"

	"dm-service/internal/models"
)

// Handle is a live connection endpoint as seen by the registry. Send must not
// block: it enqueues the event or reports false.
type Handle interface {
	ID() string
	UserID() string
	Send(event models.ServerEvent) bool
}

// PresenceListener is told about every registry mutation. It runs inside the
// registry's critical section so snapshots arrive in mutation order.
type PresenceListener interface {
	PresenceChanged(online []string, peers []Handle)
}

// Registry maps an identity to its current connection. At most one handle is
// kept per identity; registering again replaces the previous handle.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]Handle
	listener PresenceListener
}

// NewRegistry creates an empty registry. listener may be nil.
func NewRegistry(listener PresenceListener) *Registry {
	return &Registry{
		conns:    make(map[string]Handle),
		listener: listener,
	}
}

// Register inserts or replaces the entry for h.UserID().
func (r *Registry) Register(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[h.UserID()] = h
	r.changedLocked()
}

// Unregister removes h's entry if h is still the registered handle for its
// identity. A handle that was already replaced leaves its successor in place.
func (r *Registry) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[h.UserID()]
	if !ok || current.ID() != h.ID() {
		return false
	}
	delete(r.conns, h.UserID())
	r.changedLocked()
	return true
}

// Lookup returns the handle registered for userID.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[userID]
	return h, ok
}

// Online returns the registered identities in sorted order.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

func (r *Registry) onlineLocked() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) changedLocked() {
	if r.listener == nil {
		return
	}
	peers := make([]Handle, 0, len(r.conns))
	for _, h := range r.conns {
		peers = append(peers, h)
	}
	r.listener.PresenceChanged(r.onlineLocked(), peers)
}
