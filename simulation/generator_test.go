package simulation

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/sched"
)

var testEpoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// mockRandSource provides a deterministic random source for testing
type mockRandSource struct {
	sequence []int
	index    int
}

func (m *mockRandSource) Intn(n int) int {
	if m.index >= len(m.sequence) {
		return 0
	}
	val := m.sequence[m.index] % n
	m.index++
	return val
}

var testDealers = []core.Dealer{
	{ID: "d1", FirstName: "Ada", LastName: "Moss", Type: core.DealerStandard},
	{ID: "d2", FirstName: "Ben", LastName: "Hale", Type: core.DealerVIP},
	{ID: "p1", FirstName: "Bid", LastName: "User 1", Type: core.DealerBidUser1},
}

func fixedConfig() Config {
	cfg := DefaultConfig()
	cfg.MinInterval = 2 * time.Second
	cfg.MaxInterval = 2 * time.Second
	return cfg
}

func newTestGenerator(opts ...Option) (*Generator, *sched.FakeClock, *sched.Scheduler, *[]core.Bid) {
	clock := sched.NewFakeClock(testEpoch)
	s := sched.NewScheduler(clock, sched.Inline{})
	bids := &[]core.Bid{}
	opts = append([]Option{WithRandSource(&mockRandSource{}), WithConfig(fixedConfig())}, opts...)
	g := New(s, func(b core.Bid) { *bids = append(*bids, b) }, opts...)
	return g, clock, s, bids
}

func testParams() Params {
	return Params{
		Dealers:      testDealers,
		AskingPrice:  decimal.NewFromInt(36000),
		Increment:    decimal.NewFromInt(500),
		ReservePrice: decimal.NewFromInt(45000),
	}
}

func TestGenerator_EmitsSimulatedBids(t *testing.T) {
	g, clock, _, bids := newTestGenerator()

	assert.True(t, g.Start(testParams()))
	check.Equal(t, "49500", g.Ceiling().String())

	clock.Advance(time.Second)
	check.Equal(t, 0, len(*bids))

	clock.Advance(time.Second)
	assert.Equal(t, 1, len(*bids))
	first := (*bids)[0]
	check.Equal(t, core.BidTypeSimulated, first.BidType)
	check.Equal(t, "36000", first.Amount.String())
	check.Equal(t, "d1", first.BidderID)
	check.Equal(t, "Ada Moss", first.Bidder)
	check.Equal(t, testEpoch.Add(2*time.Second), first.Timestamp)
	check.NotEqual(t, "", first.ID)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, len(*bids))
	check.Equal(t, "36500", (*bids)[1].Amount.String())
	check.Equal(t, "d2", (*bids)[1].BidderID) // never the same dealer twice in a row
}

func TestGenerator_ExcludesProxyDealers(t *testing.T) {
	g, clock, _, bids := newTestGenerator()

	for i := 0; i < 10; i++ {
		g.Start(testParams())
		clock.Advance(20 * time.Second)
		g.Stop()
	}
	for _, b := range *bids {
		check.True(t, !b.Type.IsProxy())
	}

	p := testParams()
	p.Dealers = []core.Dealer{testDealers[2]}
	check.True(t, !g.Start(p))
	check.True(t, !g.Running())
}

func TestGenerator_StartTwiceIsNoop(t *testing.T) {
	g, clock, s, bids := newTestGenerator()

	check.True(t, g.Start(testParams()))
	check.True(t, !g.Start(testParams()))
	check.Equal(t, 1, s.Pending())

	clock.Advance(2 * time.Second)
	check.Equal(t, 1, len(*bids))
}

func TestGenerator_StopsAtCeiling(t *testing.T) {
	g, clock, s, bids := newTestGenerator()

	p := testParams()
	p.AskingPrice = decimal.NewFromInt(1000)
	p.Increment = decimal.NewFromInt(100)
	p.ReservePrice = decimal.NewFromInt(1000)
	g.Start(p)
	check.Equal(t, "1100", g.Ceiling().String())

	clock.Advance(time.Minute)
	assert.Equal(t, 2, len(*bids))
	check.Equal(t, "1000", (*bids)[0].Amount.String())
	check.Equal(t, "1100", (*bids)[1].Amount.String())
	check.True(t, !g.Running())
	check.Equal(t, 0, s.Pending())
}

func TestGenerator_StopCancelsPendingBid(t *testing.T) {
	g, clock, s, bids := newTestGenerator()

	g.Start(testParams())
	clock.Advance(time.Second)
	g.Stop()
	g.Stop()

	clock.Advance(time.Minute)
	check.Equal(t, 0, len(*bids))
	check.Equal(t, 0, s.Pending())
	check.Equal(t, 0, clock.Pending())
}

func TestGenerator_StopsWhenLotInactive(t *testing.T) {
	active := true
	g, clock, _, bids := newTestGenerator(WithActive(func() bool { return active }))

	g.Start(testParams())
	clock.Advance(2 * time.Second)
	check.Equal(t, 1, len(*bids))

	active = false
	clock.Advance(2 * time.Second)
	check.Equal(t, 1, len(*bids))
	check.True(t, !g.Running())
}

func TestGenerator_StopFromEmit(t *testing.T) {
	clock := sched.NewFakeClock(testEpoch)
	s := sched.NewScheduler(clock, sched.Inline{})

	var g *Generator
	count := 0
	g = New(s, func(core.Bid) {
		count++
		g.Stop()
	}, WithRandSource(&mockRandSource{}), WithConfig(fixedConfig()))

	g.Start(testParams())
	clock.Advance(time.Minute)
	check.Equal(t, 1, count)
	check.Equal(t, 0, s.Pending())
}

func TestGenerator_FollowsPushedAskingPrice(t *testing.T) {
	g, clock, _, bids := newTestGenerator()

	g.Start(testParams())
	g.SetAskingPrice(decimal.NewFromInt(40000))
	g.SetIncrement(decimal.NewFromInt(1000))

	clock.Advance(4 * time.Second)
	assert.Equal(t, 2, len(*bids))
	check.Equal(t, "40000", (*bids)[0].Amount.String())
	check.Equal(t, "41000", (*bids)[1].Amount.String())
}

func TestGenerator_RandomInterval(t *testing.T) {
	cfg := DefaultConfig()
	// Intn order: first interval, then dealer pick and next interval per bid
	rs := &mockRandSource{sequence: []int{1000, 0, 4000}}
	g, clock, _, bids := newTestGenerator(WithConfig(cfg), WithRandSource(rs))

	g.Start(testParams())
	clock.Advance(2999 * time.Millisecond)
	check.Equal(t, 0, len(*bids))
	clock.Advance(time.Millisecond)
	check.Equal(t, 1, len(*bids))

	clock.Advance(5999 * time.Millisecond)
	check.Equal(t, 1, len(*bids))
	clock.Advance(time.Millisecond)
	check.Equal(t, 2, len(*bids))
}

func TestGenerator_CeilingFromAskingWithoutReserve(t *testing.T) {
	g, _, _, _ := newTestGenerator()

	p := testParams()
	p.ReservePrice = decimal.Zero
	g.Start(p)
	check.Equal(t, "39600", g.Ceiling().String())
}
