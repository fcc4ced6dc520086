package core

import (
	"github.com/shopspring/decimal"
)

// Stats accumulates the running totals of a sale.
type Stats struct {
	SoldLots      int `json:"soldLots"`
	WithdrawnLots int `json:"withdrawnLots"`
	NoSaleLots    int `json:"noSaleLots"`

	DealerBids     int `json:"dealerBids"`
	AuctioneerBids int `json:"auctioneerBids"`
	SimulatedBids  int `json:"simulatedBids"` // subset of DealerBids

	TotalSoldValue    decimal.Decimal `json:"totalSoldValue"`
	TotalReserveValue decimal.Decimal `json:"totalReserveValue"` // reserves of sold lots only
}

// RecordSale counts a sold lot.
func (s *Stats) RecordSale(soldPrice, reservePrice decimal.Decimal) {
	s.SoldLots++
	s.TotalSoldValue = s.TotalSoldValue.Add(soldPrice)
	s.TotalReserveValue = s.TotalReserveValue.Add(reservePrice)
}

func (s *Stats) RecordWithdrawn() {
	s.WithdrawnLots++
}

func (s *Stats) RecordNoSale() {
	s.NoSaleLots++
}

// RecordBid counts a bid under the category derived from its type.
func (s *Stats) RecordBid(t BidType) {
	switch t.Category() {
	case BidCategoryAuctioneer:
		s.AuctioneerBids++
	case BidCategoryDealer:
		s.DealerBids++
		if t == BidTypeSimulated {
			s.SimulatedBids++
		}
	}
}

// FinalizedLots is the number of lots that reached a terminal status.
func (s Stats) FinalizedLots() int {
	return s.SoldLots + s.WithdrawnLots + s.NoSaleLots
}

func (s Stats) TotalBids() int {
	return s.DealerBids + s.AuctioneerBids
}

// PerformancePercent is total sold value as a percentage of the reserves of the lots sold.
func (s Stats) PerformancePercent() decimal.Decimal {
	return PerformancePercent(s.TotalSoldValue, s.TotalReserveValue)
}

// SellThroughPercent is the share of finalized lots that sold.
func (s Stats) SellThroughPercent() decimal.Decimal {
	return ratioPercent(s.SoldLots, s.FinalizedLots())
}

// DealerBidSharePercent is the share of all bids that came from dealers.
func (s Stats) DealerBidSharePercent() decimal.Decimal {
	return ratioPercent(s.DealerBids, s.TotalBids())
}

func ratioPercent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole))).Mul(hundred).Round(monetaryPrecision)
}
