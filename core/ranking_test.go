package core

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var rankingEpoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func rankingBid(id, bidder string, amount int64, second int) Bid {
	return Bid{
		ID:        id,
		BidderID:  bidder,
		Bidder:    bidder,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: rankingEpoch.Add(time.Duration(second) * time.Second),
		BidType:   BidTypeStandard,
	}
}

func TestRankBidders_Integration(t *testing.T) {
	// Newest first, as held on a lot
	bids := []Bid{
		rankingBid("bid4", "dealer_c", 47000, 40),
		rankingBid("bid3", "dealer_a", 46000, 30),
		rankingBid("bid2", "dealer_b", 41000, 20),
		rankingBid("bid1", "dealer_a", 40000, 10),
	}

	ranking := RankBidders(bids)

	check.Equal(t, 3, len(ranking.SortedBidders))
	check.Equal(t, "dealer_c", ranking.SortedBidders[0])
	check.Equal(t, "dealer_a", ranking.SortedBidders[1])
	check.Equal(t, "dealer_b", ranking.SortedBidders[2])

	// Highest bid per bidder is kept
	check.Equal(t, "bid3", ranking.HighestBids["dealer_a"].ID)
	check.Equal(t, 2, ranking.Ranks["dealer_a"])

	check.Equal(t, "bid4", ranking.Winner().ID)
	check.Equal(t, "bid3", ranking.RunnerUp().ID)
}

func TestRankBidders_EmptyBids(t *testing.T) {
	ranking := RankBidders(nil)

	check.NotNil(t, ranking)
	check.Equal(t, 0, len(ranking.SortedBidders))
	check.Equal(t, 0, len(ranking.HighestBids))
	check.Equal(t, 0, len(ranking.Ranks))
	check.Nil(t, ranking.Winner())
	check.Nil(t, ranking.RunnerUp())
}

func TestRankBidders_SingleBidder(t *testing.T) {
	ranking := RankBidders([]Bid{
		rankingBid("bid2", "dealer_a", 41000, 20),
		rankingBid("bid1", "dealer_a", 40000, 10),
	})

	check.Equal(t, 1, len(ranking.SortedBidders))
	check.Equal(t, "bid2", ranking.Winner().ID)
	check.Nil(t, ranking.RunnerUp())
}

func TestRankBidders_TieGoesToEarliest(t *testing.T) {
	bids := []Bid{
		rankingBid("bid2", "dealer_b", 40000, 20),
		rankingBid("bid1", "dealer_a", 40000, 10),
	}

	ranking := RankBidders(bids)

	check.Equal(t, "dealer_a", ranking.SortedBidders[0])
	check.Equal(t, "dealer_b", ranking.SortedBidders[1])
}

func TestRankBidders_PreservesInput(t *testing.T) {
	bids := []Bid{
		rankingBid("bid1", "dealer_a", 40000, 10),
		rankingBid("bid2", "dealer_b", 46000, 20),
	}

	_ = RankBidders(bids)

	check.Equal(t, "bid1", bids[0].ID)
	check.Equal(t, "bid2", bids[1].ID)
}
