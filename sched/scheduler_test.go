package sched

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var testEpoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// queuedExecutor holds posted work until drained, modelling a busy loop.
type queuedExecutor struct {
	queue []func()
}

func (q *queuedExecutor) Post(fn func()) {
	q.queue = append(q.queue, fn)
}

func (q *queuedExecutor) Go(work func() func()) {
	if apply := work(); apply != nil {
		q.Post(apply)
	}
}

func (q *queuedExecutor) drain() {
	for len(q.queue) > 0 {
		fn := q.queue[0]
		q.queue = q.queue[1:]
		fn()
	}
}

func TestScheduler_After(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	s := NewScheduler(clock, Inline{})

	fired := 0
	tok := s.After(3*time.Second, func() { fired++ })
	check.True(t, s.Active(tok))

	clock.Advance(2 * time.Second)
	check.Equal(t, 0, fired)

	clock.Advance(time.Second)
	check.Equal(t, 1, fired)
	check.True(t, !s.Active(tok))

	clock.Advance(10 * time.Second)
	check.Equal(t, 1, fired)
}

func TestScheduler_Every(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	s := NewScheduler(clock, Inline{})

	var at []time.Time
	tok := s.Every(time.Second, func() { at = append(at, clock.Now()) })

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, len(at))
	check.Equal(t, testEpoch.Add(time.Second), at[0])
	check.Equal(t, testEpoch.Add(3*time.Second), at[2])
	check.True(t, s.Active(tok))
	check.Equal(t, 1, clock.Pending())

	check.True(t, s.Cancel(tok))
	clock.Advance(3 * time.Second)
	check.Equal(t, 3, len(at))
	check.Equal(t, 0, clock.Pending())
}

func TestScheduler_EveryCancelsItself(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	s := NewScheduler(clock, Inline{})

	ticks := 0
	var tok Token
	tok = s.Every(time.Second, func() {
		ticks++
		if ticks == 2 {
			s.Cancel(tok)
		}
	})

	clock.Advance(10 * time.Second)
	check.Equal(t, 2, ticks)
	check.Equal(t, 0, s.Pending())
	check.Equal(t, 0, clock.Pending())
}

func TestScheduler_CancelDropsQueuedCallback(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	exec := &queuedExecutor{}
	s := NewScheduler(clock, exec)

	fired := false
	tok := s.After(time.Second, func() { fired = true })

	// The clock fires and hands the callback to the loop, but the loop is busy
	clock.Advance(time.Second)
	check.Equal(t, 1, len(exec.queue))

	// Cancelling before the loop gets to it must win
	check.True(t, s.Cancel(tok))
	exec.drain()
	check.True(t, !fired)
}

func TestScheduler_CancelUnknownToken(t *testing.T) {
	s := NewScheduler(NewFakeClock(testEpoch), Inline{})
	check.True(t, !s.Cancel(0))
	check.True(t, !s.Cancel(42))
}

func TestScheduler_CancelAll(t *testing.T) {
	clock := NewFakeClock(testEpoch)
	s := NewScheduler(clock, Inline{})

	fired := 0
	s.After(time.Second, func() { fired++ })
	s.Every(time.Second, func() { fired++ })
	check.Equal(t, 2, s.Pending())

	s.CancelAll()
	clock.Advance(5 * time.Second)
	check.Equal(t, 0, fired)
	check.Equal(t, 0, s.Pending())
}

func TestFakeClock_FiresInDeadlineOrder(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	var order []string
	clock.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clock.AfterFunc(time.Second, func() { order = append(order, "a") })
	clock.AfterFunc(2*time.Second, func() { order = append(order, "c") })

	clock.Advance(5 * time.Second)
	check.Equal(t, []string{"a", "b", "c"}, order)
	check.Equal(t, testEpoch.Add(5*time.Second), clock.Now())
}

func TestFakeClock_Stop(t *testing.T) {
	clock := NewFakeClock(testEpoch)

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })
	check.True(t, timer.Stop())
	check.True(t, !timer.Stop())

	clock.Advance(time.Second)
	check.True(t, !fired)
}

func TestLoop_CallRunsOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(16)
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	counter := 0
	for i := 0; i < 10; i++ {
		ok := loop.Call(func() { counter++ })
		check.True(t, ok)
	}
	check.Equal(t, 10, counter)

	cancel()
	check.Equal(t, context.Canceled, <-errCh)

	// Work posted after shutdown is dropped instead of blocking
	check.True(t, !loop.Call(func() { counter++ }))
	check.Equal(t, 10, counter)
}

func TestLoop_GoPostsContinuation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop(16)
	go func() { _ = loop.Run(ctx) }()

	result := make(chan int, 1)
	loop.Go(func() func() {
		value := 21 * 2
		return func() { result <- value }
	})

	select {
	case v := <-result:
		check.Equal(t, 42, v)
	case <-time.After(5 * time.Second):
		t.Fatal("continuation never ran")
	}
}
