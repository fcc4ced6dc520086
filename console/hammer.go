package console

import (
	"fmt"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/sched"
	"github.com/cloudx-io/auctionconsole/state"
)

// Stage is the local progress of the hammer sequence.
type Stage int

const (
	StageIdle Stage = iota
	StageGoingOnce
	StageGoingTwice
)

func (s Stage) String() string {
	switch s {
	case StageGoingOnce:
		return "going_once"
	case StageGoingTwice:
		return "going_twice"
	default:
		return "idle"
	}
}

// Hammer runs the "going once, going twice, sold" sequence and the
// withdrawal countdown. At most one of the two runs at a time.
type Hammer struct {
	c *Console

	stage Stage
	dots  int
	task  sched.Token

	countdown      int
	withdrawalDots int
	withdrawalTask sched.Token
}

func newHammer(c *Console) *Hammer {
	return &Hammer{c: c}
}

func (h *Hammer) Stage() Stage {
	return h.stage
}

// InProgress reports whether the hammer sequence is running.
func (h *Hammer) InProgress() bool {
	return h.stage != StageIdle
}

// Start begins the sequence. It is refused unless the lot is active in a
// running auction, the hammer is usable, bids exist and neither the sequence nor a withdrawal
// countdown is already running.
func (h *Hammer) Start() bool {
	store := h.c.store
	if h.InProgress() || h.WithdrawalActive() {
		return false
	}
	if !h.c.trading() ||
		!state.Get(store, state.CanUseHammer) ||
		len(state.Get(store, state.Bids)) == 0 {
		return false
	}

	h.enter(StageGoingOnce)
	h.task = h.c.sched.Every(h.c.cfg.HammerTick, h.tick)
	return true
}

func (h *Hammer) tick() {
	h.dots++
	h.c.store.Set(state.HammerDots.To(h.dots))
	if !h.InProgress() || h.dots < h.c.cfg.HammerStageTicks {
		return
	}

	switch h.stage {
	case StageGoingOnce:
		h.enter(StageGoingTwice)
	case StageGoingTwice:
		h.sold()
	default:
		h.stop()
	}
}

func (h *Hammer) enter(stage Stage) {
	h.stage = stage
	h.dots = 0

	hammerState := core.HammerGoingOnce
	phrase := "Going once"
	if stage == StageGoingTwice {
		hammerState = core.HammerGoingTwice
		phrase = "Going twice"
	}
	h.c.store.Set(state.HammerState.To(hammerState), state.HammerDots.To(0))

	highest := state.Get(h.c.store, state.CurrentHighestBid)
	h.c.speak(fmt.Sprintf("%s at %s", phrase, highest.Decimal.StringFixed(0)))
	h.c.publish(core.Event{Kind: core.EventHammer, LotNumber: h.c.currentLot().LotNumber, Hammer: hammerState})
}

func (h *Hammer) sold() {
	h.stop()
	lotNumber := h.c.currentLot().LotNumber
	h.c.store.Set(state.HammerState.To(core.HammerSold), state.HammerDots.To(0))
	h.c.publish(core.Event{Kind: core.EventHammer, LotNumber: lotNumber, Hammer: core.HammerSold})

	if !h.c.MarkAsSold() {
		h.c.logger.Warn("hammer fell without a sale", "lot", lotNumber)
		h.c.store.Set(state.HammerState.To(core.HammerAcceptingBids))
	}
}

// stop returns the sequence to Idle and drops its pending tick.
func (h *Hammer) stop() {
	h.c.sched.Cancel(h.task)
	h.task = 0
	h.stage = StageIdle
	h.dots = 0
}

// Cancel interrupts the sequence and puts the lot back to accepting bids.
// It returns false when no sequence was running.
func (h *Hammer) Cancel() bool {
	if !h.InProgress() {
		return false
	}
	h.stop()

	switch state.Get(h.c.store, state.HammerState) {
	case core.HammerGoingOnce, core.HammerGoingTwice:
		h.c.store.Set(state.HammerState.To(core.HammerAcceptingBids), state.HammerDots.To(0))
	}
	h.c.logger.Info("hammer sequence cancelled", "lot", h.c.currentLot().LotNumber)
	return true
}

// WithdrawalActive reports whether the withdrawal countdown is running.
func (h *Hammer) WithdrawalActive() bool {
	return h.c.sched.Active(h.withdrawalTask)
}

// StartWithdrawal begins the countdown that ends in WithdrawLot. It is
// refused while the hammer sequence or another countdown is running, for a
// lot that is already closed and after the auction has ended.
func (h *Hammer) StartWithdrawal() bool {
	if h.InProgress() || h.WithdrawalActive() {
		return false
	}
	lot := h.c.currentLot()
	if lot == nil || lot.FinalState != nil || state.Get(h.c.store, state.LotStatus).Terminal() ||
		state.Get(h.c.store, state.AuctionEnded) {
		return false
	}

	h.countdown = h.c.cfg.WithdrawalSeconds
	h.withdrawalDots = 0
	h.c.store.Set(state.WithdrawalCountdown.To(h.countdown), state.WithdrawalDots.To(0))
	h.c.notifier.Notify(core.NoticeInfo, fmt.Sprintf("Lot %d will be withdrawn in %d seconds", lot.LotNumber, h.countdown))
	h.withdrawalTask = h.c.sched.Every(h.c.cfg.WithdrawalTick, h.withdrawalTick)
	return true
}

func (h *Hammer) withdrawalTick() {
	h.countdown--
	h.withdrawalDots = (h.withdrawalDots + 1) % 4
	if h.countdown > 0 {
		h.c.store.Set(state.WithdrawalCountdown.To(h.countdown), state.WithdrawalDots.To(h.withdrawalDots))
		return
	}

	h.resetWithdrawal()
	h.c.WithdrawLot()
}

// CancelWithdrawal stops the countdown. It returns false when none was running.
func (h *Hammer) CancelWithdrawal() bool {
	if !h.WithdrawalActive() {
		return false
	}
	h.resetWithdrawal()
	h.c.notifier.Notify(core.NoticeInfo, "Withdrawal cancelled")
	return true
}

func (h *Hammer) resetWithdrawal() {
	h.c.sched.Cancel(h.withdrawalTask)
	h.withdrawalTask = 0
	h.countdown = 0
	h.withdrawalDots = 0
	h.c.store.Set(state.WithdrawalCountdown.To(0), state.WithdrawalDots.To(0))
}
