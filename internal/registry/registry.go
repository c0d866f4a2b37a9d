// Package registry tracks which user is reachable on which live connection.
// It is the single source of truth the router consults for delivery.
package registry

import "sync"

// Conn is the minimal surface the registry needs from a live connection.
type Conn interface {
	// SafeSend enqueues an outbound payload without blocking. It returns
	// false if the connection is closing or its buffer is full.
	SafeSend(payload []byte) bool

	// Close tears the connection down.
	Close() error
}

// Registry maps authenticated user ids to their live connections. At most one
// connection is registered per user; a later registration supersedes the
// earlier one.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[int64]Conn),
	}
}

// Register binds userID to c and returns the previously registered connection,
// if any. The caller decides what to do with the superseded connection.
func (r *Registry) Register(userID int64, c Conn) (prev Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev = r.conns[userID]
	if prev == c {
		prev = nil
	}
	r.conns[userID] = c
	return prev
}

// Deregister removes the binding for userID, but only if c is still the
// registered connection. This keeps a slow teardown of a superseded connection
// from unregistering its replacement. Returns true if the binding was removed.
func (r *Registry) Deregister(userID int64, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == c {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the live connection for userID, if one is registered.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	return c, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UserIDs returns a snapshot of the currently registered user ids.
func (r *Registry) UserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
