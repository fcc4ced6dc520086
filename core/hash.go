package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeBidHash hashes a single bid.
//
// Formula: SHA256(bid_id + "|" + bidder_id + "|" + amount + "|" + unix_millis)
//
// The amount is formatted to exactly 2 decimal places so that 46000 and
// 46000.00 hash identically.
func ComputeBidHash(bid Bid) string {
	data := fmt.Sprintf("%s|%s|%s|%d", bid.ID, bid.BidderID, bid.Amount.StringFixed(monetaryPrecision), bid.Timestamp.UnixMilli())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeBidHistoryHash hashes the full bid history of a lot.
// Used when a lot is finalized and again when a sale receipt is verified.
//
// Formula: SHA256(lot_number + "|" + bid_hash_1 + "|" + bid_hash_2 + ...)
//
// Bids are hashed in the order given, which for a final state is newest first.
func ComputeBidHistoryHash(lotNumber int, bids []Bid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", lotNumber)
	for _, bid := range bids {
		b.WriteString("|")
		b.WriteString(ComputeBidHash(bid))
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash)
}
