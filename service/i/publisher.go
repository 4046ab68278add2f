package i

import "context"

// Publisher fans an event out to every client subscribed to a path,
// across all gateway instances.
type Publisher interface {
	Publish(ctx context.Context, path string, event any) error
}
