package console

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/state"
)

func TestOnBidPlaced_Rejections(t *testing.T) {
	h := newHarness(t)
	c := h.c

	check.Equal(t, ErrLotNotActive, c.OnBidPlaced(dealerBid(dealerAda, 40000)))
	c.StartLot()

	unknown := dealerBid(dealerAda, 40000)
	unknown.BidType = "PHONE"
	check.Equal(t, ErrUnknownBidType, c.OnBidPlaced(unknown))
	check.Equal(t, ErrInvalidAmount, c.OnBidPlaced(dealerBid(dealerAda, 0)))

	h.bid(t, dealerAda, 40000)
	check.Equal(t, ErrBidTooLow, c.OnBidPlaced(dealerBid(dealerBen, 40000)))
	check.Equal(t, ErrBidTooLow, c.OnBidPlaced(dealerBid(dealerBen, 39000)))

	check.Equal(t, 1, len(get(h, state.Bids)))
	check.Equal(t, 1, c.Stats().TotalBids())
}

func TestOnBidPlaced_FillsIDAndTimestamp(t *testing.T) {
	h := newHarness(t)
	h.c.StartLot()
	h.clock.Advance(90 * time.Second)

	h.bid(t, dealerAda, 40000)
	b := get(h, state.Bids)[0]
	check.NotEqual(t, "", b.ID)
	check.Equal(t, testEpoch.Add(90*time.Second), b.Timestamp)

	explicit := dealerBid(dealerBen, 41000)
	explicit.ID = "bid-42"
	explicit.Timestamp = testEpoch
	assert.NoError(t, h.c.OnBidPlaced(explicit))
	b = get(h, state.Bids)[0]
	check.Equal(t, "bid-42", b.ID)
	check.Equal(t, testEpoch, b.Timestamp)
}

func TestOnBidPlaced_Classification(t *testing.T) {
	tests := []struct {
		name       string
		bidType    core.BidType
		bidder     core.Dealer
		dealerBids int
		auctioneer int
		simulated  int
		sounds     int
	}{
		{name: "standard", bidType: core.BidTypeStandard, bidder: dealerAda, dealerBids: 1, sounds: 1},
		{name: "simulated", bidType: core.BidTypeSimulated, bidder: dealerBen, dealerBids: 1, simulated: 1},
		{name: "bid1", bidType: core.BidTypeBid1, bidder: proxyOne, auctioneer: 1},
		{name: "bid2", bidType: core.BidTypeBid2, bidder: proxyTwo, auctioneer: 1},
		{name: "war", bidType: core.BidTypeWar, bidder: proxyOne, auctioneer: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.c.StartLot()

			b := dealerBid(tt.bidder, 40000)
			b.BidType = tt.bidType
			assert.NoError(t, h.c.OnBidPlaced(b))

			stats := h.c.Stats()
			check.Equal(t, tt.dealerBids, stats.DealerBids)
			check.Equal(t, tt.auctioneer, stats.AuctioneerBids)
			check.Equal(t, tt.simulated, stats.SimulatedBids)
			check.Equal(t, tt.sounds, h.notifier.bidSounds)
			check.Equal(t, 1, h.events.count(core.EventBidPlaced))
		})
	}
}

func TestSetAskingPrice(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.StartLot()

	// Before any bid, any positive price is accepted
	assert.NoError(t, c.SetAskingPrice(decimal.NewFromInt(35000)))
	check.Equal(t, "35000", get(h, state.AskingPrice).String())
	check.Equal(t, "35000", get(h, state.NewBidAmount).String())

	h.bid(t, dealerAda, 40000)

	check.Equal(t, ErrAskingNotAboveHighest, c.SetAskingPrice(decimal.NewFromInt(40000)))
	check.Equal(t, ErrAskingNotAboveHighest, c.SetAskingPrice(decimal.NewFromInt(38000)))
	check.Equal(t, ErrInvalidAmount, c.SetAskingPrice(decimal.NewFromInt(-1)))
	check.Equal(t, "40500", get(h, state.AskingPrice).String())
	check.Equal(t, 3, h.notifier.count(core.NoticeError))

	assert.NoError(t, c.SetAskingPrice(decimal.NewFromInt(42000)))
	check.Equal(t, "42000", get(h, state.AskingPrice).String())
	check.Equal(t, "42000", get(h, state.NewBidAmount).String())

	// Frozen once the reserve is met
	h.bid(t, dealerBen, 45000)
	check.Equal(t, ErrReserveMet, c.SetAskingPrice(decimal.NewFromInt(50000)))
	check.Equal(t, "45500", get(h, state.AskingPrice).String())
	check.Equal(t, 4, h.notifier.count(core.NoticeError))
}

func TestSetAskingPrice_UpdatesSimulation(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.SetSimulationEnabled(true)
	c.StartLot()

	assert.NoError(t, c.SetAskingPrice(decimal.NewFromInt(39000)))
	h.clock.Advance(2 * time.Second)

	bids := get(h, state.Bids)
	assert.Equal(t, 1, len(bids))
	check.Equal(t, "39000", bids[0].Amount.String())
}

func TestAdjustBidIncrement(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.StartLot()

	check.Equal(t, "1500", c.AdjustBidIncrement(decimal.NewFromInt(1000)).String())
	check.Equal(t, "1500", get(h, state.BidIncrement).String())

	h.bid(t, dealerAda, 40000)
	check.Equal(t, "41500", get(h, state.AskingPrice).String())

	// Never below the floor
	check.Equal(t, "100", c.AdjustBidIncrement(decimal.NewFromInt(-5000)).String())
	check.Equal(t, "100", get(h, state.BidIncrement).String())
}

func TestAdjustBidIncrement_FloorFromDefault(t *testing.T) {
	h := newHarness(t)
	check.Equal(t, "100", h.c.AdjustBidIncrement(decimal.NewFromInt(-1000)).String())
}

func TestPlaceAuctioneerBid(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.StartLot()

	assert.NoError(t, c.PlaceAuctioneerBid(core.DealerBidUser1))
	b := get(h, state.Bids)[0]
	check.Equal(t, "p1", b.BidderID)
	check.Equal(t, "Bid User 1", b.Bidder)
	check.Equal(t, core.BidTypeBid1, b.BidType)
	check.Equal(t, "36000", b.Amount.String())

	assert.NoError(t, c.PlaceAuctioneerBid(core.DealerBidUser2))
	b = get(h, state.Bids)[0]
	check.Equal(t, core.BidTypeBid2, b.BidType)
	check.Equal(t, "36500", b.Amount.String())

	check.Equal(t, ErrNotProxy, c.PlaceAuctioneerBid(core.DealerVIP))
	check.Equal(t, 2, c.Stats().AuctioneerBids)
	check.Equal(t, 0, h.notifier.bidSounds)
}

func TestPlaceAuctioneerBid_WithoutLoadedProxy(t *testing.T) {
	h := newHarness(t)
	h.c.Store().Set(state.Dealers.To([]core.Dealer{dealerAda}))
	h.c.StartLot()

	assert.NoError(t, h.c.PlaceAuctioneerBid(core.DealerBidUser2))
	b := get(h, state.Bids)[0]
	check.Equal(t, "bid-user-2", b.BidderID)
	check.Equal(t, "Bid User 2", b.Bidder)
}

func TestBidWar(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.StartLot()

	assert.True(t, c.StartBidWar(4))
	check.True(t, !c.StartBidWar(2))

	h.clock.Advance(10 * time.Second)
	bids := get(h, state.Bids)
	assert.Equal(t, 4, len(bids))
	check.Equal(t, "p2", bids[0].BidderID)
	check.Equal(t, "p1", bids[1].BidderID)
	check.Equal(t, "p2", bids[2].BidderID)
	check.Equal(t, "p1", bids[3].BidderID)
	for _, b := range bids {
		check.Equal(t, core.BidTypeWar, b.BidType)
	}
	check.Equal(t, "37500", bids[0].Amount.String())
	check.Equal(t, 4, c.Stats().AuctioneerBids)
	check.True(t, !c.BidWarActive())
	check.Equal(t, 0, c.Scheduler().Pending())
}

func TestBidWar_StopsWithLot(t *testing.T) {
	h := newHarness(t)
	c := h.c
	c.StartLot()

	c.StartBidWar(10)
	h.clock.Advance(2 * time.Second)
	c.NoSale()
	check.True(t, !c.BidWarActive())

	h.clock.Advance(time.Minute)
	check.Equal(t, 2, len(get(h, state.CurrentLot).FinalState.Bids))
}

func TestBidWar_Preconditions(t *testing.T) {
	h := newHarness(t)
	check.True(t, !h.c.StartBidWar(3)) // lot not active
	h.c.StartLot()
	check.True(t, !h.c.StartBidWar(0))
	check.True(t, !h.c.StopBidWar())
}
