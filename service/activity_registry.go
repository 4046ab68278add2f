package service

import (
	"sync"

	"github.com/beka-birhanu/gameloader-api/service/i"
	"github.com/google/uuid"
)

// ClientEntry pairs a user with the connection claiming their gameplay
// activity, for batch registration.
type ClientEntry struct {
	UserID uuid.UUID
	Client i.Client
}

// ActivityRegistry tracks the single connection authorized to act on each
// user's behalf while they are in a gameplay activity. Claims are released
// explicitly or automatically when the connection closes.
type ActivityRegistry struct {
	mu      sync.Mutex
	clients map[uuid.UUID]i.Client
}

func NewActivityRegistry() *ActivityRegistry {
	return &ActivityRegistry{
		clients: make(map[uuid.UUID]i.Client),
	}
}

// Register claims the activity for a user. Returns true if no other client
// held the claim, false otherwise (state unchanged).
func (r *ActivityRegistry) Register(userID uuid.UUID, client i.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[userID]; ok {
		return false
	}

	r.register(userID, client)
	return true
}

// RegisterAll claims the activity for every listed user, all or nothing.
// When any user already has a claim, no claims are applied and the
// conflicting user IDs are returned.
func (r *ActivityRegistry) RegisterAll(entries []ClientEntry) (bool, []uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicting []uuid.UUID
	for _, e := range entries {
		if _, ok := r.clients[e.UserID]; ok {
			conflicting = append(conflicting, e.UserID)
		}
	}
	if len(conflicting) > 0 {
		return false, conflicting
	}

	for _, e := range entries {
		r.register(e.UserID, e.Client)
	}
	return true, nil
}

// Unregister releases a user's claim. Returns true if a claim existed.
func (r *ActivityRegistry) Unregister(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[userID]
	delete(r.clients, userID)
	return ok
}

// ClientFor returns the client currently claiming a user's activity, or nil.
func (r *ActivityRegistry) ClientFor(userID uuid.UUID) i.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[userID]
}

// register stores the claim and arranges for it to be dropped when the
// connection closes. Callers must hold r.mu.
func (r *ActivityRegistry) register(userID uuid.UUID, client i.Client) {
	r.clients[userID] = client
	go func() {
		<-client.Done()
		r.releaseClient(userID, client)
	}()
}

// releaseClient drops the claim only if it is still held by this client, so
// a disconnect cannot release a claim re-registered by a newer connection.
func (r *ActivityRegistry) releaseClient(userID uuid.UUID, client i.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[userID] == client {
		delete(r.clients, userID)
	}
}
