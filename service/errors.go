package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Validation errors, rejected before a load session exists.
var (
	ErrNoHumanPlayers = errors.New("no human players in game configuration")
	ErrUnknownPlayer  = errors.New("could not resolve all players in game")
	ErrNoActiveClient = errors.New("not all players have an active client")
)

// ErrMatchNotFound is returned by the report entry points when the match id
// is unknown, the user is not on its roster, or the attempt already
// terminated.
var ErrMatchNotFound = errors.New("match not found")

// PlayerFailedError aborts a load attempt because one specific participant
// disconnected, timed out, or reported failure.
type PlayerFailedError struct {
	UserID uuid.UUID
}

func (e *PlayerFailedError) Error() string {
	return fmt.Sprintf("player %s failed to load", e.UserID)
}

// LaunchTimeoutError aborts a load attempt because the load barrier was not
// satisfied within the deadline. Pending lists the participants that never
// reported loaded.
type LaunchTimeoutError struct {
	Pending []uuid.UUID
}

func (e *LaunchTimeoutError) Error() string {
	return fmt.Sprintf("launch timed out waiting for %d player(s)", len(e.Pending))
}

// UnexpectedAbortError wraps an abort cause that is not part of the loader's
// error taxonomy. Seeing one indicates a bug in the loader or a collaborator.
type UnexpectedAbortError struct {
	Cause error
}

func (e *UnexpectedAbortError) Error() string {
	return fmt.Sprintf("game load aborted with unexpected cause: %v", e.Cause)
}

func (e *UnexpectedAbortError) Unwrap() error {
	return e.Cause
}
