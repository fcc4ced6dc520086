package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestStats_RecordSale(t *testing.T) {
	var s Stats
	s.RecordSale(decimal.NewFromInt(46000), decimal.NewFromInt(45000))
	s.RecordSale(decimal.NewFromInt(20000), decimal.NewFromInt(22000))

	check.Equal(t, 2, s.SoldLots)
	check.Equal(t, "66000", s.TotalSoldValue.String())
	check.Equal(t, "67000", s.TotalReserveValue.String())
	check.Equal(t, "98.51", s.PerformancePercent().String())
}

func TestStats_RecordBid(t *testing.T) {
	tests := []struct {
		name       string
		bidType    BidType
		dealer     int
		auctioneer int
		simulated  int
	}{
		{name: "Standard", bidType: BidTypeStandard, dealer: 1},
		{name: "Simulated", bidType: BidTypeSimulated, dealer: 1, simulated: 1},
		{name: "Bid user 1", bidType: BidTypeBid1, auctioneer: 1},
		{name: "Bid user 2", bidType: BidTypeBid2, auctioneer: 1},
		{name: "Bid war", bidType: BidTypeWar, auctioneer: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stats
			s.RecordBid(tt.bidType)
			check.Equal(t, tt.dealer, s.DealerBids)
			check.Equal(t, tt.auctioneer, s.AuctioneerBids)
			check.Equal(t, tt.simulated, s.SimulatedBids)
			check.Equal(t, 1, s.TotalBids())
		})
	}
}

func TestStats_Percentages(t *testing.T) {
	var s Stats
	s.RecordSale(decimal.NewFromInt(10000), decimal.NewFromInt(10000))
	s.RecordNoSale()
	s.RecordWithdrawn()
	s.RecordWithdrawn()

	check.Equal(t, 4, s.FinalizedLots())
	check.Equal(t, "25", s.SellThroughPercent().String())

	s.RecordBid(BidTypeStandard)
	s.RecordBid(BidTypeSimulated)
	s.RecordBid(BidTypeBid1)
	check.Equal(t, "66.67", s.DealerBidSharePercent().String())
}

func TestStats_ZeroValue(t *testing.T) {
	var s Stats
	check.Equal(t, "0", s.PerformancePercent().String())
	check.Equal(t, "0", s.SellThroughPercent().String())
	check.Equal(t, "0", s.DealerBidSharePercent().String())
}
