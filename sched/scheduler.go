package sched

import (
	"time"
)

// Token identifies a scheduled task. The zero Token is never issued.
type Token uint64

// Executor runs work on the owning loop.
type Executor interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop, then posts the continuation it returns (if any).
	Go(work func() (apply func()))
}

// Scheduler issues cancellable one-shot and repeating tasks whose callbacks
// run on the executor. It must only be used from the executor's goroutine.
//
// Cancelling a task removes its token before returning, so a callback the
// clock already handed to the executor is dropped when it is dequeued.
type Scheduler struct {
	clock Clock
	exec  Executor
	last  Token
	tasks map[Token]Timer
}

func NewScheduler(clock Clock, exec Executor) *Scheduler {
	return &Scheduler{
		clock: clock,
		exec:  exec,
		tasks: make(map[Token]Timer),
	}
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After runs fn once after d.
func (s *Scheduler) After(d time.Duration, fn func()) Token {
	tok := s.nextToken()
	s.tasks[tok] = s.clock.AfterFunc(d, func() {
		s.exec.Post(func() {
			if _, ok := s.tasks[tok]; !ok {
				return
			}
			delete(s.tasks, tok)
			fn()
		})
	})
	return tok
}

// Every runs fn every d until the task is cancelled. fn may cancel its own token.
func (s *Scheduler) Every(d time.Duration, fn func()) Token {
	tok := s.nextToken()
	var arm func()
	arm = func() {
		s.tasks[tok] = s.clock.AfterFunc(d, func() {
			s.exec.Post(func() {
				if _, ok := s.tasks[tok]; !ok {
					return
				}
				arm()
				fn()
			})
		})
	}
	arm()
	return tok
}

// Cancel stops the task. It returns false if tok is not active.
func (s *Scheduler) Cancel(tok Token) bool {
	timer, ok := s.tasks[tok]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.tasks, tok)
	return true
}

// Active reports whether tok is still scheduled.
func (s *Scheduler) Active(tok Token) bool {
	_, ok := s.tasks[tok]
	return ok
}

// Pending returns the number of active tasks.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}

// CancelAll stops every task.
func (s *Scheduler) CancelAll() {
	for tok := range s.tasks {
		s.Cancel(tok)
	}
}

func (s *Scheduler) nextToken() Token {
	s.last++
	return s.last
}
