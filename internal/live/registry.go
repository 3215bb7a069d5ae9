// Package live tracks users with an open real-time session and pushes
// messages to them.
package live

import (
	"errors"
	"sync"
)

var (
	// ErrSessionClosed is returned by Push after the session has ended.
	ErrSessionClosed = errors.New("live session closed")

	// ErrSendBufferFull is returned by Push when the peer is not draining
	// its queue.
	ErrSendBufferFull = errors.New("live session send buffer full")
)

// Session is a handle able to accept a pushed message.
type Session interface {
	Push(message string) error
}

// Registry maps user IDs to their current live session. It is safe for
// concurrent use; the zero value is not, use NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]Session)}
}

// Register makes s the session for userID, replacing any previous one.
func (r *Registry) Register(userID int64, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = s
}

// Unregister removes userID's entry only if it still points at s, so a
// stale session shutting down cannot evict its replacement.
func (r *Registry) Unregister(userID int64, s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
		return true
	}
	return false
}

// Lookup returns the session registered for userID.
func (r *Registry) Lookup(userID int64) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Len reports how many users are connected.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
