package core

import (
	"sort"
)

// BidderRanking orders the bidders of a lot by their best offer.
type BidderRanking struct {
	Ranks         map[string]int  `json:"ranks"`
	HighestBids   map[string]*Bid `json:"highest_bids"`
	SortedBidders []string        `json:"sorted_bidders"`
}

// RankBidders keeps the highest bid of each bidder and sorts bidders by it,
// highest first. Equal amounts are ordered by who reached the amount first.
// bids may be in any order; the input slice is not modified.
func RankBidders(bids []Bid) *BidderRanking {
	if len(bids) == 0 {
		return &BidderRanking{
			Ranks:         make(map[string]int),
			HighestBids:   make(map[string]*Bid),
			SortedBidders: make([]string, 0),
		}
	}

	bidderMap := make(map[string]*Bid)
	bidderOrder := make([]string, 0, len(bids))

	for i := range bids {
		bid := &bids[i]

		existing, exists := bidderMap[bid.BidderID]
		if !exists {
			bidderOrder = append(bidderOrder, bid.BidderID)
		}

		// Keep highest bid per bidder; on a repeat of the same amount keep the earlier one
		if !exists || bid.Amount.GreaterThan(existing.Amount) ||
			(bid.Amount.Equal(existing.Amount) && bid.Timestamp.Before(existing.Timestamp)) {
			bidderMap[bid.BidderID] = bid
		}
	}

	sort.SliceStable(bidderOrder, func(i, j int) bool {
		a, b := bidderMap[bidderOrder[i]], bidderMap[bidderOrder[j]]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	result := &BidderRanking{
		Ranks:         make(map[string]int, len(bidderOrder)),
		HighestBids:   make(map[string]*Bid, len(bidderOrder)),
		SortedBidders: bidderOrder,
	}
	for rank, bidder := range bidderOrder {
		result.Ranks[bidder] = rank + 1
		result.HighestBids[bidder] = bidderMap[bidder]
	}
	return result
}

// Winner is the top ranked bid, nil if there were no bids.
func (r *BidderRanking) Winner() *Bid {
	if len(r.SortedBidders) == 0 {
		return nil
	}
	return r.HighestBids[r.SortedBidders[0]]
}

// RunnerUp is the second ranked bid, nil with fewer than two bidders.
func (r *BidderRanking) RunnerUp() *Bid {
	if len(r.SortedBidders) < 2 {
		return nil
	}
	return r.HighestBids[r.SortedBidders[1]]
}
