package main

import (
	"log/slog"
	"time"

	"github.com/cloudx-io/auctionconsole/console"
	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/sched"
	"github.com/cloudx-io/auctionconsole/state"
)

// autopilot stands in for the auctioneer: it opens each lot, lets the
// simulated room bid, brings the hammer down once the room goes quiet and
// moves on until the catalogue is exhausted.
type autopilot struct {
	c      *console.Console
	logger *slog.Logger

	// quiet is how long the room must be silent before the hammer starts.
	quiet time.Duration
	// abandon is how long a lot may sit without a usable bid before it is
	// withdrawn (no bids) or passed (reserve not met).
	abandon time.Duration
	// pause separates a closed lot from the next one.
	pause time.Duration

	lastActivity time.Time
	status       core.LotStatus
	check        sched.Token
	next         sched.Token
	cancels      []func()
	done         func()
}

func newAutopilot(c *console.Console, logger *slog.Logger, done func()) *autopilot {
	return &autopilot{
		c:       c,
		logger:  logger,
		quiet:   3 * time.Second,
		abandon: 20 * time.Second,
		pause:   3 * time.Second,
		done:    done,
	}
}

// start must run on the console loop after the auction has loaded.
func (a *autopilot) start() {
	store := a.c.Store()
	sch := a.c.Scheduler()

	a.cancels = append(a.cancels,
		state.Observe(store, state.Bids, func([]core.Bid) { a.lastActivity = sch.Now() }),
		state.Observe(store, state.LotStatus, a.onStatus),
		state.Observe(store, state.AuctionEnded, func(ended bool) {
			if ended {
				a.stop()
			}
		}),
	)
	a.check = sch.Every(time.Second, a.tick)

	if !a.c.StartLot() {
		a.advance()
	}
}

func (a *autopilot) stop() {
	sch := a.c.Scheduler()
	sch.Cancel(a.check)
	sch.Cancel(a.next)
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
	if a.done != nil {
		a.done()
		a.done = nil
	}
}

// onStatus schedules the next lot when the running one closes. Selecting
// a lot that was closed earlier does not count.
func (a *autopilot) onStatus(status core.LotStatus) {
	sch := a.c.Scheduler()
	prev := a.status
	a.status = status
	switch {
	case status == core.LotStatusActive:
		a.lastActivity = sch.Now()
	case status.Terminal() && prev == core.LotStatusActive && !sch.Active(a.next):
		a.next = sch.After(a.pause, a.advance)
	}
}

// advance moves to the next open lot, ending the auction after the last.
func (a *autopilot) advance() {
	for a.c.MoveLot() {
		if a.c.StartLot() {
			return
		}
	}
	a.logger.Info("catalogue exhausted")
	a.c.EndAuction()
}

func (a *autopilot) tick() {
	store := a.c.Store()
	if state.Get(store, state.LotStatus) != core.LotStatusActive {
		return
	}
	hammer := a.c.Hammer()
	if hammer.InProgress() || hammer.WithdrawalActive() || a.c.Simulation().Running() {
		return
	}

	idle := a.c.Scheduler().Now().Sub(a.lastActivity)
	bids := state.Get(store, state.Bids)
	switch {
	case len(bids) > 0 && state.Get(store, state.CanUseHammer) && idle >= a.quiet:
		hammer.Start()
	case len(bids) == 0 && idle >= a.abandon:
		hammer.StartWithdrawal()
	case len(bids) > 0 && idle >= a.abandon:
		a.c.NoSale()
	}
}
