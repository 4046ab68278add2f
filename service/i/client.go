package i

import (
	"github.com/google/uuid"
)

// Client is one live network connection acting on behalf of a user. The
// loader never talks to the transport directly; it subscribes clients to
// broadcast paths and watches for disconnects.
type Client interface {
	// UserID returns the user this connection is authenticated as.
	UserID() uuid.UUID

	// Subscribe joins the client to a broadcast path. If initial is non-nil
	// it is delivered to this client only, before any published event on the
	// path.
	Subscribe(path string, initial any) error

	// Unsubscribe removes the client from a broadcast path. Idempotent.
	Unsubscribe(path string)

	// Done returns a channel that is closed when the connection closes.
	Done() <-chan struct{}
}
