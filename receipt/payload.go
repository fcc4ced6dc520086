// Package receipt issues and verifies signed records of lot outcomes.
//
// A receipt is a COSE_Sign1 message (untagged 4-element array) whose payload
// is the deterministic CBOR encoding of Payload, signed with ES256.
package receipt

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/auctionconsole/core"
)

// ErrNotFinalized is returned when a receipt is requested for an open lot.
var ErrNotFinalized = errors.New("lot has no final state")

// Payload is the signed content of a receipt. Money is carried as fixed
// two-decimal strings so the encoding does not depend on float formatting.
type Payload struct {
	AuctionID      string `cbor:"auction_id" json:"auction_id"`
	Currency       string `cbor:"currency,omitempty" json:"currency,omitempty"`
	LotNumber      int    `cbor:"lot_number" json:"lot_number"`
	Title          string `cbor:"title" json:"title"`
	VIN            string `cbor:"vin,omitempty" json:"vin,omitempty"`
	Status         string `cbor:"status" json:"status"`
	SoldPrice      string `cbor:"sold_price" json:"sold_price"`
	ReservePrice   string `cbor:"reserve_price" json:"reserve_price"`
	Performance    string `cbor:"performance" json:"performance"`
	SoldTo         string `cbor:"sold_to" json:"sold_to"`
	SoldToID       string `cbor:"sold_to_id,omitempty" json:"sold_to_id,omitempty"`
	UnderbidderID  string `cbor:"underbidder_id,omitempty" json:"underbidder_id,omitempty"`
	BidCount       int    `cbor:"bid_count" json:"bid_count"`
	BidHistoryHash string `cbor:"bid_history_hash" json:"bid_history_hash"`
	Timestamp      int64  `cbor:"timestamp" json:"timestamp"` // unix milliseconds
}

// NewPayload builds the receipt payload for a finalized lot.
func NewPayload(meta core.AuctionMeta, lot *core.Lot) (Payload, error) {
	if lot == nil || lot.FinalState == nil {
		return Payload{}, ErrNotFinalized
	}
	fs := lot.FinalState
	return Payload{
		AuctionID:      meta.ID,
		Currency:       meta.Currency,
		LotNumber:      lot.LotNumber,
		Title:          lot.Title(),
		VIN:            lot.VIN,
		Status:         string(fs.Status),
		SoldPrice:      fs.SoldPrice.StringFixed(2),
		ReservePrice:   fs.ReservePrice.StringFixed(2),
		Performance:    fs.Performance.StringFixed(2),
		SoldTo:         fs.SoldTo,
		SoldToID:       fs.SoldToID,
		UnderbidderID:  fs.UnderbidderID,
		BidCount:       len(fs.Bids),
		BidHistoryHash: fs.BidHistoryHash,
		Timestamp:      fs.Timestamp.UnixMilli(),
	}, nil
}

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("receipt: build CBOR encoding mode: %v", err))
	}
	return em
}

// Marshal encodes p with core deterministic encoding, so equal payloads
// always produce identical bytes.
func (p Payload) Marshal() ([]byte, error) {
	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt payload: %w", err)
	}
	return data, nil
}

// ParsePayload decodes a CBOR receipt payload.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parse receipt payload: %w", err)
	}
	return p, nil
}
