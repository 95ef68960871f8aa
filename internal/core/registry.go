package core

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

type registryEntry struct {
	client *Client
	user   *User
}

// Registry maps live connections to their bound identity.
// It is the only shared mutable state in the core; every mutation and every
// fan-out snapshot goes through its lock, and no I/O happens while it is held.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*registryEntry)}
}

// Register adds an unbound connection. Returns false if the id is already live.
func (r *Registry) Register(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = &registryEntry{client: c}
	return true
}

// Claim binds user to the connection. A connection binds at most once, and a
// user is bound to at most one live connection; both checks and the bind
// happen under one lock.
func (r *Registry) Claim(clientID string, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[clientID]
	if !ok {
		return ErrNotConnected
	}
	if entry.user != nil {
		return ErrAlreadyBound
	}
	for id, other := range r.clients {
		if id != clientID && other.user != nil && other.user.ID == user.ID {
			return errIdentityHeld
		}
	}
	entry.user = &user
	return nil
}

// Holds reports whether any live connection is bound to userID.
func (r *Registry) Holds(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.clients {
		if entry.user != nil && entry.user.ID == userID {
			return true
		}
	}
	return false
}

// Unregister removes the connection and returns its bound identity, if any.
// ok is false when the connection was not registered, so teardown runs once.
func (r *Registry) Unregister(clientID string) (user *User, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	delete(r.clients, clientID)
	return entry.user, true
}

// Bound returns the identity bound to the connection.
func (r *Registry) Bound(clientID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.clients[clientID]
	if !ok || entry.user == nil {
		return User{}, false
	}
	return *entry.user, true
}

// Clients returns a snapshot of live connections for fan-out.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, entry := range r.clients {
		clients = append(clients, entry.client)
	}
	return clients
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// OnlineUsers returns the distinct identities bound to live connections, ordered by id.
func (r *Registry) OnlineUsers() []User {
	r.mu.RLock()
	seen := make(map[int64]User)
	for _, entry := range r.clients {
		if entry.user != nil {
			seen[entry.user.ID] = *entry.user
		}
	}
	r.mu.RUnlock()

	users := lo.Values(seen)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}
