package console

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/receipt"
	"github.com/cloudx-io/auctionconsole/simulation"
	"github.com/cloudx-io/auctionconsole/state"
)

// Load fetches the auction, lots and dealers and makes the first open lot
// current. Each load is bounded by CallTimeout; failed loads are logged and
// leave empty defaults. done, if not nil, runs on the loop once everything
// is applied.
func (c *Console) Load(ctx context.Context, done func()) {
	persist := c.persist
	logger := c.logger
	timeout := c.cfg.CallTimeout
	c.exec.Go(func() func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		meta, err := persist.LoadAuctionMeta(ctx)
		if err != nil {
			logger.Error("failed to load auction", "error", err)
			meta = core.AuctionMeta{}
		}
		lots, err := persist.LoadLots(ctx)
		if err != nil {
			logger.Error("failed to load lots", "error", err)
			lots = []*core.Lot{}
		}
		dealers, err := persist.LoadDealers(ctx)
		if err != nil {
			logger.Error("failed to load dealers", "error", err)
			dealers = []core.Dealer{}
		}

		return func() {
			c.store.Set(
				state.Auction.To(meta),
				state.Lots.To(lots),
				state.Dealers.To(dealers),
			)
			if c.currentLot() == nil {
				for _, lot := range lots {
					if lot.FinalState == nil {
						c.store.SelectLot(lot)
						break
					}
				}
			}
			c.logger.Info("auction loaded", "auction", meta.ID, "lots", len(lots), "dealers", len(dealers))
			if done != nil {
				done()
			}
		}
	})
}

// StartLot opens the current lot for bidding. It is a no-op returning false
// unless the current lot is Pending, not yet finalized and the auction is
// still running.
func (c *Console) StartLot() bool {
	lot := c.currentLot()
	if lot == nil || lot.FinalState != nil || state.Get(c.store, state.AuctionEnded) {
		return false
	}
	if state.Get(c.store, state.LotStatus) != core.LotStatusPending {
		return false
	}

	delete(c.reserveAnnounced, lot.LotNumber)
	c.store.Set(
		state.LotStatus.To(core.LotStatusActive),
		state.HammerState.To(core.HammerAcceptingBids),
		state.CanControlLot.To(true),
	)

	asking := state.Get(c.store, state.AskingPrice)
	c.speak(fmt.Sprintf("Lot %d, %s. Who will start me at %s?", lot.LotNumber, lot.Title(), asking.StringFixed(0)))
	c.publish(core.Event{Kind: core.EventLotStarted, LotNumber: lot.LotNumber, Status: core.LotStatusActive})
	c.logger.Info("lot started", "lot", lot.LotNumber, "asking", asking.String())

	if state.Get(c.store, state.SimulationEnabled) {
		c.startSimulation()
	}
	return true
}

// MoveLot advances to the next lot in the list. It is a no-op returning
// false without a current lot or on the last lot.
func (c *Console) MoveLot() bool {
	lots := state.Get(c.store, state.Lots)
	idx := slices.Index(lots, c.currentLot())
	if idx < 0 || idx == len(lots)-1 {
		return false
	}

	c.halt()
	c.store.SelectLot(lots[idx+1])
	c.logger.Info("moved to lot", "lot", lots[idx+1].LotNumber)
	return true
}

// SelectLot jumps to the lot numbered lotNumber. A lot in progress must be
// closed first.
func (c *Console) SelectLot(lotNumber int) bool {
	if state.Get(c.store, state.LotStatus) == core.LotStatusActive {
		return false
	}
	lots := state.Get(c.store, state.Lots)
	idx := slices.IndexFunc(lots, func(l *core.Lot) bool { return l.LotNumber == lotNumber })
	if idx < 0 {
		return false
	}

	c.halt()
	c.store.SelectLot(lots[idx])
	return true
}

// ReorderLots moves the lot at position from to position to.
func (c *Console) ReorderLots(from, to int) bool {
	lots := state.Get(c.store, state.Lots)
	if from < 0 || from >= len(lots) || to < 0 || to >= len(lots) || from == to {
		return false
	}

	next := slices.Clone(lots)
	lot := next[from]
	next = slices.Delete(next, from, from+1)
	next = slices.Insert(next, to, lot)
	c.store.Set(state.Lots.To(next))
	return true
}

// NoSale closes the current lot unsold.
func (c *Console) NoSale() bool {
	return c.finalizeLot(core.LotStatusNoSale)
}

// WithdrawLot takes the current lot out of the sale.
func (c *Console) WithdrawLot() bool {
	return c.finalizeLot(core.LotStatusWithdrawn)
}

// MarkAsSold sells the current lot to the most recent bidder. It is a no-op
// returning false when there is no highest bid.
func (c *Console) MarkAsSold() bool {
	if !state.Get(c.store, state.CurrentHighestBid).Valid || len(state.Get(c.store, state.Bids)) == 0 {
		return false
	}
	return c.finalizeLot(core.LotStatusSold)
}

func (c *Console) finalizeLot(status core.LotStatus) bool {
	lot := c.currentLot()
	if lot == nil || lot.FinalState != nil || state.Get(c.store, state.LotStatus).Terminal() ||
		state.Get(c.store, state.AuctionEnded) {
		return false
	}

	c.halt()

	bids := state.Get(c.store, state.Bids)
	fs := c.buildFinalState(lot, status, bids)
	lot.Finalize(fs)

	updates := []state.Update{
		state.LotStatus.To(status),
		state.CanControlLot.To(false),
	}
	if status == core.LotStatusSold {
		updates = append(updates, state.HammerState.To(core.HammerSold), state.HammerDots.To(0))
	}
	c.store.Set(updates...)

	switch status {
	case core.LotStatusSold:
		c.stats.RecordSale(fs.SoldPrice, fs.ReservePrice)
		c.speak(fmt.Sprintf("Sold to %s for %s", fs.SoldTo, fs.SoldPrice.StringFixed(0)))
		c.notifier.Notify(core.NoticeSuccess, fmt.Sprintf("Lot %d sold to %s for %s", lot.LotNumber, fs.SoldTo, fs.SoldPrice.StringFixed(2)))
	case core.LotStatusNoSale:
		c.stats.RecordNoSale()
		c.speak(fmt.Sprintf("Lot %d, no sale", lot.LotNumber))
		c.notifier.Notify(core.NoticeInfo, fmt.Sprintf("Lot %d marked as no sale", lot.LotNumber))
	case core.LotStatusWithdrawn:
		c.stats.RecordWithdrawn()
		c.speak(fmt.Sprintf("Lot %d has been withdrawn", lot.LotNumber))
		c.notifier.Notify(core.NoticeInfo, fmt.Sprintf("Lot %d withdrawn", lot.LotNumber))
	}

	encoded := c.issueReceipt(lot)
	c.saveLot(lot)
	c.publish(core.Event{
		Kind:       core.EventLotFinalized,
		LotNumber:  lot.LotNumber,
		Status:     status,
		FinalState: lot.FinalState,
		Receipt:    string(encoded),
	})
	c.logger.Info("lot finalized",
		"lot", lot.LotNumber,
		"status", status,
		"sold_to", fs.SoldTo,
		"price", fs.SoldPrice.String(),
		"bids", len(bids))
	return true
}

func (c *Console) buildFinalState(lot *core.Lot, status core.LotStatus, bids []core.Bid) core.LotFinalState {
	fs := core.LotFinalState{
		SoldPrice:      decimal.Zero,
		ReservePrice:   lot.ReservePrice,
		Timestamp:      c.sched.Now(),
		SoldTo:         core.NoBidder,
		Bids:           bids,
		BidHistoryHash: core.ComputeBidHistoryHash(lot.LotNumber, bids),
		Status:         status,
	}
	if highest := state.Get(c.store, state.CurrentHighestBid); highest.Valid {
		fs.SoldPrice = highest.Decimal
	}
	if len(bids) > 0 {
		fs.SoldTo = bids[0].Bidder
		fs.SoldToID = bids[0].BidderID
		if status == core.LotStatusSold {
			fs.Timestamp = bids[0].Timestamp
		}
		if runnerUp := core.RankBidders(bids).RunnerUp(); runnerUp != nil {
			fs.UnderbidderID = runnerUp.BidderID
		}
	}
	fs.Performance = core.PerformancePercent(fs.SoldPrice, fs.ReservePrice)
	return fs
}

func (c *Console) issueReceipt(lot *core.Lot) receipt.Encoded {
	if c.signer == nil {
		return ""
	}
	coseBytes, err := c.signer.Issue(state.Get(c.store, state.Auction), lot)
	if err != nil {
		c.logger.Error("failed to issue receipt", "lot", lot.LotNumber, "error", err)
		return ""
	}
	encoded, err := receipt.Encode(coseBytes)
	if err != nil {
		c.logger.Error("failed to encode receipt", "lot", lot.LotNumber, "error", err)
		return ""
	}
	c.receipts[lot.LotNumber] = encoded
	return encoded
}

// saveLot persists a copy of lot; a failure is reported but never rolls
// back the transition.
func (c *Console) saveLot(lot *core.Lot) {
	snapshot := *lot
	persist := c.persist
	logger := c.logger
	c.call(func(ctx context.Context) func() {
		_, err := persist.SaveLot(ctx, snapshot)
		if err == nil {
			return nil
		}
		logger.Error("failed to save lot", "lot", snapshot.LotNumber, "error", err)
		return func() {
			c.notifier.Notify(core.NoticeError, fmt.Sprintf("Lot %d could not be saved", snapshot.LotNumber))
		}
	})
}

// SetReservePrice edits the current lot's reserve and re-derives the hammer flag.
func (c *Console) SetReservePrice(p decimal.Decimal) error {
	lot := c.currentLot()
	if lot == nil || lot.FinalState != nil {
		return ErrLotNotActive
	}
	if !p.IsPositive() {
		c.notifier.Notify(core.NoticeError, "Reserve price must be positive")
		return ErrInvalidAmount
	}

	lot.ReservePrice = p
	c.store.RecomputeCanUseHammer()
	c.checkReserveMet()
	c.saveLot(lot)
	return nil
}

func (c *Console) SetHammerRequiresReserveMet(required bool) {
	c.store.Set(state.HammerRequiresReserveMet.To(required))
}

func (c *Console) SetVoiceEnabled(enabled bool) {
	c.store.Set(state.VoiceEnabled.To(enabled))
}

// SetSimulationEnabled toggles simulated bidding, starting or stopping the
// generator right away when a lot is running.
func (c *Console) SetSimulationEnabled(enabled bool) {
	c.store.Set(state.SimulationEnabled.To(enabled))
	if !enabled {
		c.sim.Stop()
		return
	}
	if c.trading() {
		c.startSimulation()
	}
}

// EndAuction stops every timer and closes the sale. A lot still open for
// bidding goes back to Pending unsold; nothing can bid on, hammer or
// finalize a lot afterwards.
func (c *Console) EndAuction() bool {
	if state.Get(c.store, state.AuctionEnded) {
		return false
	}
	c.halt()
	c.StopClock()

	updates := []state.Update{state.AuctionEnded.To(true), state.ShowResultsDialog.To(true)}
	if state.Get(c.store, state.LotStatus) == core.LotStatusActive {
		updates = append(updates,
			state.LotStatus.To(core.LotStatusPending),
			state.HammerState.To(core.HammerAcceptingBids),
			state.HammerDots.To(0),
			state.CanControlLot.To(false),
		)
	}
	c.store.Set(updates...)

	stats := c.stats
	c.speak("The auction has ended. Thank you all for bidding.")
	c.notifier.Notify(core.NoticeInfo, fmt.Sprintf("Auction ended: %d sold, %s total", stats.SoldLots, stats.TotalSoldValue.StringFixed(2)))
	c.publish(core.Event{Kind: core.EventAuctionEnded})
	c.logger.Info("auction ended",
		"sold", stats.SoldLots,
		"no_sale", stats.NoSaleLots,
		"withdrawn", stats.WithdrawnLots,
		"total", stats.TotalSoldValue.String(),
		"performance", stats.PerformancePercent().String())
	return true
}

// SendMessage sends text to one dealer or, when global, to everyone. The
// message is appended to the store once persistence accepts it.
func (c *Console) SendMessage(text string, global bool, recipientID string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if !global && recipientID == "" {
		return ErrNoRecipient
	}

	persist := c.persist
	logger := c.logger
	sentAt := c.sched.Now()
	c.call(func(ctx context.Context) func() {
		msg, err := persist.SendMessage(ctx, text, global, recipientID)
		if err != nil {
			logger.Error("failed to send message", "global", global, "recipient", recipientID, "error", err)
			return func() { c.notifier.Notify(core.NoticeError, "Message could not be sent") }
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.SentAt.IsZero() {
			msg.SentAt = sentAt
		}
		return func() {
			messages := append(slices.Clone(state.Get(c.store, state.Messages)), msg)
			c.store.Set(state.Messages.To(messages), state.ShowMessageDialog.To(false))
			c.notifier.Notify(core.NoticeSuccess, "Message sent")
		}
	})
	return nil
}

// StartClock refreshes CurrentTime every ClockTick.
func (c *Console) StartClock() bool {
	if c.sched.Active(c.clockTask) {
		return false
	}
	c.store.Set(state.CurrentTime.To(c.sched.Now()))
	c.clockTask = c.sched.Every(c.cfg.ClockTick, func() {
		c.store.Set(state.CurrentTime.To(c.sched.Now()))
	})
	return true
}

func (c *Console) StopClock() {
	c.sched.Cancel(c.clockTask)
	c.clockTask = 0
}

// loadLotActivity runs whenever a different lot becomes current. Results
// for a lot that is no longer current are dropped.
func (c *Console) loadLotActivity(lot *core.Lot) {
	c.activityRequest++
	request := c.activityRequest
	lotNumber := lot.LotNumber
	persist := c.persist
	logger := c.logger

	c.call(func(ctx context.Context) func() {
		activity := make(map[core.ActivityKind][]core.ViewerInfo, len(core.ActivityKinds))
		for _, kind := range core.ActivityKinds {
			infos, err := persist.LoadLotActivity(ctx, lotNumber, kind)
			if err != nil {
				logger.Warn("failed to load lot activity", "lot", lotNumber, "kind", kind, "error", err)
				infos = nil
			}
			if infos == nil {
				infos = []core.ViewerInfo{}
			}
			activity[kind] = infos
		}
		return func() {
			if request != c.activityRequest {
				return
			}
			c.store.Set(
				state.Viewers.To(activity[core.ActivityViewers]),
				state.Watchers.To(activity[core.ActivityWatchers]),
				state.Leads.To(activity[core.ActivityLeads]),
				state.OnlineUsers.To(activity[core.ActivityOnline]),
			)
		}
	})
}

// checkReserveMet announces the first bid at or above reserve, once per lot.
func (c *Console) checkReserveMet() {
	lot := c.currentLot()
	highest := state.Get(c.store, state.CurrentHighestBid)
	if lot == nil || !highest.Valid || c.reserveAnnounced[lot.LotNumber] {
		return
	}
	if !core.MeetsReserve(highest.Decimal, lot.ReservePrice) {
		return
	}

	c.reserveAnnounced[lot.LotNumber] = true
	c.store.RecomputeCanUseHammer()
	c.speak("The reserve has been met. This vehicle will be sold.")
	c.notifier.Notify(core.NoticeSuccess, fmt.Sprintf("Reserve met on lot %d", lot.LotNumber))
	c.publish(core.Event{Kind: core.EventReserveMet, LotNumber: lot.LotNumber})
	c.logger.Info("reserve met", "lot", lot.LotNumber, "highest", highest.Decimal.String())
}

func (c *Console) startSimulation() {
	lot := c.currentLot()
	if lot == nil || state.Get(c.store, state.AuctionEnded) {
		return
	}
	c.sim.Start(simulation.Params{
		Dealers:      state.Get(c.store, state.Dealers),
		AskingPrice:  state.Get(c.store, state.AskingPrice),
		Increment:    state.Get(c.store, state.BidIncrement),
		ReservePrice: lot.ReservePrice,
	})
}

// trading reports whether the current lot accepts bids: it is active and
// the auction has not ended.
func (c *Console) trading() bool {
	return state.Get(c.store, state.LotStatus) == core.LotStatusActive && !state.Get(c.store, state.AuctionEnded)
}

// halt stops everything that may still act on the current lot.
func (c *Console) halt() {
	c.sim.Stop()
	c.hammer.Cancel()
	c.hammer.CancelWithdrawal()
	c.StopBidWar()
}
