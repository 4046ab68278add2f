package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// errSessionClosed is the cancellation cause used when a session is torn
// down after completing normally.
var errSessionClosed = errors.New("load session closed")

// loadSession is the live state of one launch attempt. It is created by
// LoadGame, mutated only by the owning goroutine and the two report entry
// points, and removed from the session table when the attempt terminates.
type loadSession struct {
	id      uuid.UUID
	players []uuid.UUID // roster order, humans only

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	loaded  map[uuid.UUID]bool
	changed chan struct{} // signaled whenever the loaded set grows
}

func newLoadSession(id uuid.UUID, players []uuid.UUID) *loadSession {
	ctx, cancel := context.WithCancelCause(context.Background())
	loaded := make(map[uuid.UUID]bool, len(players))
	for _, p := range players {
		loaded[p] = false
	}
	return &loadSession{
		id:      id,
		players: players,
		ctx:     ctx,
		cancel:  cancel,
		loaded:  loaded,
		changed: make(chan struct{}, 1),
	}
}

// has reports whether the user is on this session's roster.
func (s *loadSession) has(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loaded[userID]
	return ok
}

// registerLoaded marks a participant as loaded and wakes the barrier wait.
func (s *loadSession) registerLoaded(userID uuid.UUID) {
	s.mu.Lock()
	already := s.loaded[userID]
	s.loaded[userID] = true
	s.mu.Unlock()

	if !already {
		select {
		case s.changed <- struct{}{}:
		default:
		}
	}
}

// loadedPlayers returns the loaded participants in roster order.
func (s *loadSession) loadedPlayers() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range s.players {
		if s.loaded[p] {
			ids = append(ids, p)
		}
	}
	return ids
}

// pendingPlayers returns the participants that have not loaded, in roster
// order.
func (s *loadSession) pendingPlayers() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range s.players {
		if !s.loaded[p] {
			ids = append(ids, p)
		}
	}
	return ids
}

func (s *loadSession) allLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if !s.loaded[p] {
			return false
		}
	}
	return true
}

// abort cancels the session with the given cause. The first cause wins;
// later calls are no-ops.
func (s *loadSession) abort(cause error) {
	s.cancel(cause)
}

func (s *loadSession) done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *loadSession) aborted() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// abortCause returns the cause the session was aborted with.
func (s *loadSession) abortCause() error {
	return context.Cause(s.ctx)
}
