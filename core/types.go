package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoBidder is recorded as the winner of a lot that closed without bids.
const NoBidder = "No bidder"

var (
	// DefaultBidIncrement is the increment a lot starts with.
	DefaultBidIncrement = decimal.NewFromInt(500)
	// MinBidIncrement is the floor AdjustBidIncrement never goes below.
	MinBidIncrement = decimal.NewFromInt(100)
)

// LotStatus is the lifecycle status of a lot.
type LotStatus string

const (
	LotStatusPending   LotStatus = "pending"
	LotStatusActive    LotStatus = "active"
	LotStatusSold      LotStatus = "sold"
	LotStatusNoSale    LotStatus = "no_sale"
	LotStatusWithdrawn LotStatus = "withdrawn"
)

// Terminal reports whether no further transition is possible from s.
func (s LotStatus) Terminal() bool {
	switch s {
	case LotStatusSold, LotStatusNoSale, LotStatusWithdrawn:
		return true
	default:
		return false
	}
}

// HammerState tracks the hammer ceremony of the current lot.
type HammerState string

const (
	HammerAcceptingBids HammerState = "accepting_bids"
	HammerGoingOnce     HammerState = "going_once"
	HammerGoingTwice    HammerState = "going_twice"
	HammerSold          HammerState = "sold"
)

// BidType tags a bid with its origin.
type BidType string

const (
	BidTypeStandard  BidType = "STANDARD"
	BidTypeBid1      BidType = "BID1"
	BidTypeBid2      BidType = "BID2"
	BidTypeWar       BidType = "WAR"
	BidTypeSimulated BidType = "SIMULATED"
)

// BidCategory is the statistics bucket a bid is counted in.
type BidCategory int

const (
	BidCategoryDealer BidCategory = iota
	BidCategoryAuctioneer
)

// Valid reports whether t is one of the known bid types.
func (t BidType) Valid() bool {
	switch t {
	case BidTypeStandard, BidTypeBid1, BidTypeBid2, BidTypeWar, BidTypeSimulated:
		return true
	default:
		return false
	}
}

// Category classifies t. Proxy bids placed from the rostrum (BID1, BID2, WAR)
// are auctioneer bids; everything else, simulated bids included, is a dealer bid.
func (t BidType) Category() BidCategory {
	switch t {
	case BidTypeBid1, BidTypeBid2, BidTypeWar:
		return BidCategoryAuctioneer
	case BidTypeStandard, BidTypeSimulated:
		return BidCategoryDealer
	default:
		return BidCategoryDealer
	}
}

// DealerType is the category of a participant.
type DealerType string

const (
	DealerStandard DealerType = "Standard"
	DealerVIP      DealerType = "VIP"
	DealerPremium  DealerType = "Premium"
	DealerBidUser1 DealerType = "Bid User 1"
	DealerBidUser2 DealerType = "Bid User 2"
)

// IsProxy reports whether t is one of the synthetic rostrum bidders.
func (t DealerType) IsProxy() bool {
	return t == DealerBidUser1 || t == DealerBidUser2
}

// Lot is a single vehicle offered in the sale.
type Lot struct {
	LotNumber          int             `json:"lotNumber"`
	Make               string          `json:"make"`
	Model              string          `json:"model"`
	Year               int             `json:"year"`
	Mileage            int             `json:"mileage"`
	Colour             string          `json:"colour,omitempty"`
	FuelType           string          `json:"fuelType,omitempty"`
	Transmission       string          `json:"transmission,omitempty"`
	VIN                string          `json:"vin,omitempty"`
	ReservePrice       decimal.Decimal `json:"reservePrice"`
	InitialAskingPrice decimal.Decimal `json:"initialAskingPrice"`
	Views              int             `json:"views"`
	Watchers           int             `json:"watchers"`
	Leads              int             `json:"leads"`
	Status             *LotStatus      `json:"status,omitempty"`
	FinalState         *LotFinalState  `json:"finalState,omitempty"`
}

// Title is the spoken and displayed name of the vehicle.
func (l *Lot) Title() string {
	parts := make([]string, 0, 3)
	if l.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", l.Year))
	}
	if l.Make != "" {
		parts = append(parts, l.Make)
	}
	if l.Model != "" {
		parts = append(parts, l.Model)
	}
	return strings.Join(parts, " ")
}

// CurrentStatus returns the lot status, Pending when none was recorded.
func (l *Lot) CurrentStatus() LotStatus {
	if l.Status == nil {
		return LotStatusPending
	}
	return *l.Status
}

// SetStatus records s on the lot.
func (l *Lot) SetStatus(s LotStatus) {
	l.Status = &s
}

// Finalize attaches the final state and aligns Status with it.
// It returns false if the lot was already finalized.
func (l *Lot) Finalize(fs LotFinalState) bool {
	if l.FinalState != nil {
		return false
	}
	l.FinalState = &fs
	l.SetStatus(fs.Status)
	return true
}

// LotFinalState is the outcome of a lot, captured once at its terminal transition.
type LotFinalState struct {
	SoldPrice      decimal.Decimal `json:"soldPrice"`
	ReservePrice   decimal.Decimal `json:"reservePrice"`
	Performance    decimal.Decimal `json:"performance"` // sold price as a percentage of reserve
	Timestamp      time.Time       `json:"timestamp"`
	SoldTo         string          `json:"soldTo"`
	SoldToID       string          `json:"soldToId,omitempty"`
	UnderbidderID  string          `json:"underbidderId,omitempty"`
	Bids           []Bid           `json:"bids"`
	BidHistoryHash string          `json:"bidHistoryHash"`
	Status         LotStatus       `json:"status"`
}

// Bid is a single accepted offer on the current lot.
type Bid struct {
	ID        string          `json:"id"`
	BidderID  string          `json:"bidderId"`
	Bidder    string          `json:"bidder"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	Type      DealerType      `json:"type"`
	BidType   BidType         `json:"bidType"`
}

// Dealer is a registered participant.
type Dealer struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Company   string     `json:"company,omitempty"`
	Type      DealerType `json:"type"`
}

// DisplayName is the name shown on the bid list.
func (d Dealer) DisplayName() string {
	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		return string(d.Type)
	}
	return name
}

// AuctionMeta describes the sale itself.
type AuctionMeta struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	StartsAt time.Time `json:"startsAt"`
	Currency string    `json:"currency"`
}

// ActivityKind selects which per-lot audience list to load.
type ActivityKind string

const (
	ActivityViewers  ActivityKind = "viewers"
	ActivityWatchers ActivityKind = "watchers"
	ActivityLeads    ActivityKind = "leads"
	ActivityOnline   ActivityKind = "online"
)

// ActivityKinds lists every ActivityKind in load order.
var ActivityKinds = []ActivityKind{ActivityViewers, ActivityWatchers, ActivityLeads, ActivityOnline}

// ViewerInfo is one participant in a lot's audience.
type ViewerInfo struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"lastSeen"`
}

// Message is a note sent from the rostrum to one dealer or to everyone.
type Message struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Global      bool      `json:"global"`
	RecipientID string    `json:"recipientId,omitempty"`
	SentAt      time.Time `json:"sentAt"`
}

// NoticeKind is the severity of a user-visible notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeError   NoticeKind = "error"
)

// EventKind names an auction event published to subscribers.
type EventKind string

const (
	EventLotStarted   EventKind = "lot_started"
	EventBidPlaced    EventKind = "bid_placed"
	EventReserveMet   EventKind = "reserve_met"
	EventHammer       EventKind = "hammer"
	EventLotFinalized EventKind = "lot_finalized"
	EventAuctionEnded EventKind = "auction_ended"
)

// Event is the externally visible record of a state transition.
type Event struct {
	Kind       EventKind      `json:"kind"`
	AuctionID  string         `json:"auctionId"`
	LotNumber  int            `json:"lotNumber,omitempty"`
	Bid        *Bid           `json:"bid,omitempty"`
	Status     LotStatus      `json:"status,omitempty"`
	Hammer     HammerState    `json:"hammer,omitempty"`
	FinalState *LotFinalState `json:"finalState,omitempty"`
	Receipt    string         `json:"receipt,omitempty"` // gzip+base64 COSE receipt
	Timestamp  time.Time      `json:"timestamp"`
}
