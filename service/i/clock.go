package i

import "time"

// Clock abstracts time so loader timeouts are deterministic under test.
type Clock interface {
	Now() time.Time

	// After returns a channel that delivers the current time once d has
	// elapsed. Safe for concurrent use.
	After(d time.Duration) <-chan time.Time
}
