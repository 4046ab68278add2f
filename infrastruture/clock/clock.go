// Package clock provides the wall-clock implementation of the loader's
// Clock interface.
package clock

import "time"

// System reads real time. Tests substitute a fake.
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (*System) Now() time.Time {
	return time.Now()
}

func (*System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
