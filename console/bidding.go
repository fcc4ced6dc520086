package console

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/state"
)

// OnBidPlaced applies an incoming bid to the current lot.
//
// A bid that is not part of a bid war interrupts a running hammer sequence,
// and every bid cancels a withdrawal countdown. Statistics classify the bid
// by its BidType alone.
func (c *Console) OnBidPlaced(bid core.Bid) error {
	if !c.trading() {
		return ErrLotNotActive
	}
	if !bid.BidType.Valid() {
		return ErrUnknownBidType
	}
	if !bid.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if highest := state.Get(c.store, state.CurrentHighestBid); highest.Valid && !bid.Amount.GreaterThan(highest.Decimal) {
		return ErrBidTooLow
	}

	if bid.ID == "" {
		bid.ID = uuid.NewString()
	}
	if bid.Timestamp.IsZero() {
		bid.Timestamp = c.sched.Now()
	}

	if bid.BidType != core.BidTypeWar && state.Get(c.store, state.HammerState) != core.HammerAcceptingBids {
		c.hammer.Cancel()
	}
	c.hammer.CancelWithdrawal()

	c.store.AddBid(bid)
	asking := state.Get(c.store, state.AskingPrice)
	c.store.Set(state.NewBidAmount.To(asking))

	c.stats.RecordBid(bid.BidType)
	if bid.BidType.Category() == core.BidCategoryDealer && bid.BidType != core.BidTypeSimulated {
		c.notifier.PlayBidSound()
	}
	if c.sim.Running() {
		c.sim.SetAskingPrice(asking)
	}

	c.publish(core.Event{Kind: core.EventBidPlaced, LotNumber: c.currentLot().LotNumber, Bid: &bid})
	c.logger.Debug("bid placed",
		"lot", c.currentLot().LotNumber,
		"bidder", bid.BidderID,
		"amount", bid.Amount.String(),
		"type", bid.BidType)
	return nil
}

func (c *Console) onSimulatedBid(bid core.Bid) {
	if err := c.OnBidPlaced(bid); err != nil {
		c.logger.Debug("simulated bid rejected", "bidder", bid.BidderID, "amount", bid.Amount.String(), "error", err)
	}
}

// SetAskingPrice moves the asking price. It is refused once the reserve is
// met and when p does not exceed the highest bid; a refusal notifies the
// user and changes nothing.
func (c *Console) SetAskingPrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		c.notifier.Notify(core.NoticeError, "Asking price must be positive")
		return ErrInvalidAmount
	}

	highest := state.Get(c.store, state.CurrentHighestBid)
	if lot := c.currentLot(); lot != nil && highest.Valid && core.MeetsReserve(highest.Decimal, lot.ReservePrice) {
		c.notifier.Notify(core.NoticeError, "Asking price cannot be changed once the reserve is met")
		return ErrReserveMet
	}
	if highest.Valid && !p.GreaterThan(highest.Decimal) {
		c.notifier.Notify(core.NoticeError, fmt.Sprintf("Asking price must be above the current bid of %s", highest.Decimal.StringFixed(2)))
		return ErrAskingNotAboveHighest
	}

	c.store.Set(state.AskingPrice.To(p), state.NewBidAmount.To(p))
	if c.sim.Running() {
		c.sim.SetAskingPrice(p)
	}
	return nil
}

// AdjustBidIncrement changes the increment by delta, never below the
// minimum, and returns the new increment.
func (c *Console) AdjustBidIncrement(delta decimal.Decimal) decimal.Decimal {
	next := core.ClampIncrement(state.Get(c.store, state.BidIncrement), delta)
	c.store.Set(state.BidIncrement.To(next))
	c.sim.SetIncrement(next)
	return next
}

// PlaceAuctioneerBid bids the asking price on behalf of one of the two
// rostrum proxies.
func (c *Console) PlaceAuctioneerBid(proxy core.DealerType) error {
	bidType, ok := proxyBidTypes[proxy]
	if !ok {
		return ErrNotProxy
	}
	return c.placeProxyBid(proxy, bidType)
}

var proxyBidTypes = map[core.DealerType]core.BidType{
	core.DealerBidUser1: core.BidTypeBid1,
	core.DealerBidUser2: core.BidTypeBid2,
}

func (c *Console) placeProxyBid(proxy core.DealerType, bidType core.BidType) error {
	dealer := c.proxyDealer(proxy)
	return c.OnBidPlaced(core.Bid{
		BidderID: dealer.ID,
		Bidder:   dealer.DisplayName(),
		Amount:   state.Get(c.store, state.AskingPrice),
		Type:     proxy,
		BidType:  bidType,
	})
}

// proxyDealer returns the loaded dealer of the given proxy type, or a
// stand-in when none was loaded.
func (c *Console) proxyDealer(proxy core.DealerType) core.Dealer {
	for _, d := range state.Get(c.store, state.Dealers) {
		if d.Type == proxy {
			return d
		}
	}
	return core.Dealer{
		ID:   strings.ReplaceAll(strings.ToLower(string(proxy)), " ", "-"),
		Type: proxy,
	}
}

// StartBidWar places rounds alternating WAR bids between the two proxies,
// one every BidWarInterval. WAR bids never interrupt the hammer.
func (c *Console) StartBidWar(rounds int) bool {
	if rounds <= 0 || c.BidWarActive() || !c.trading() {
		return false
	}

	c.bidWarLeft = rounds
	c.bidWarProxy = core.DealerBidUser1
	c.bidWar = c.sched.Every(c.cfg.BidWarInterval, c.bidWarTick)
	c.logger.Info("bid war started", "lot", c.currentLot().LotNumber, "rounds", rounds)
	return true
}

func (c *Console) bidWarTick() {
	if err := c.placeProxyBid(c.bidWarProxy, core.BidTypeWar); err != nil {
		c.logger.Warn("bid war stopped", "error", err)
		c.StopBidWar()
		return
	}

	if c.bidWarProxy == core.DealerBidUser1 {
		c.bidWarProxy = core.DealerBidUser2
	} else {
		c.bidWarProxy = core.DealerBidUser1
	}
	c.bidWarLeft--
	if c.bidWarLeft <= 0 {
		c.StopBidWar()
	}
}

func (c *Console) StopBidWar() bool {
	if !c.sched.Cancel(c.bidWar) {
		return false
	}
	c.bidWar = 0
	c.bidWarLeft = 0
	return true
}

func (c *Console) BidWarActive() bool {
	return c.sched.Active(c.bidWar)
}
