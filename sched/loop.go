package sched

import (
	"context"
)

// Loop serializes all work onto one goroutine. Producers on other goroutines
// (timers, collaborator calls, embedders) hand work to it with Post or Call.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// NewLoop returns a Loop whose queue holds up to buffer pending functions.
func NewLoop(buffer int) *Loop {
	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run processes queued work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post queues fn. Work posted after Run returned is dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Go runs work on a new goroutine and posts its continuation back to the loop.
func (l *Loop) Go(work func() (apply func())) {
	go func() {
		if apply := work(); apply != nil {
			l.Post(apply)
		}
	}()
}

// Call runs fn on the loop and waits for it to finish.
// It returns false if the loop stopped first.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Inline is an Executor that runs everything immediately on the caller's
// goroutine. Paired with FakeClock it makes a console fully deterministic.
type Inline struct{}

func (Inline) Post(fn func()) {
	fn()
}

func (Inline) Go(work func() (apply func())) {
	if apply := work(); apply != nil {
		apply()
	}
}
