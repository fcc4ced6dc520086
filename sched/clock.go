// Package sched provides the time source, cancellable scheduled tasks and the
// single-goroutine loop that every console mutation runs on.
package sched

import (
	"time"
)

// Timer is a pending clock callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or was already stopped.
	Stop() bool
}

// Clock abstracts wall time for deterministic testing.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the system clock.
func RealClock() Clock {
	return realClock{}
}
