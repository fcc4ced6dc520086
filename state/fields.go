package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
)

type fieldID int

const (
	fAuction fieldID = iota
	fLots
	fCurrentLot
	fDealers
	fMessages
	fBids
	fViewers
	fWatchers
	fLeads
	fOnlineUsers
	fShowBidHistory
	fShowDealerDialog
	fShowMessageDialog
	fShowResultsDialog
	fLotStatus
	fHammerState
	fHammerDots
	fWithdrawalCountdown
	fWithdrawalDots
	fCanControlLot
	fCanUseHammer
	fHammerRequiresReserveMet
	fSimulationEnabled
	fVoiceEnabled
	fAuctionEnded
	fCurrentHighestBid
	fStartPrice
	fAskingPrice
	fNewBidAmount
	fBidIncrement
	fSelectedDealer
	fCurrentTime

	numFields
)

// Field is a typed handle to one value held by the Store.
type Field[T any] struct {
	id   fieldID
	name string
}

func (f Field[T]) Name() string {
	return f.name
}

// To builds an update that sets the field to v.
func (f Field[T]) To(v T) Update {
	return Update{id: f.id, value: v}
}

// Update is a single pending field assignment for Store.Set.
type Update struct {
	id    fieldID
	value any
}

// The closed set of auction state fields.
var (
	Auction     = Field[core.AuctionMeta]{fAuction, "auction"}
	Lots        = Field[[]*core.Lot]{fLots, "lots"}
	CurrentLot  = Field[*core.Lot]{fCurrentLot, "currentLot"}
	Dealers     = Field[[]core.Dealer]{fDealers, "dealers"}
	Messages    = Field[[]core.Message]{fMessages, "messages"}
	Bids        = Field[[]core.Bid]{fBids, "bids"}
	Viewers     = Field[[]core.ViewerInfo]{fViewers, "viewers"}
	Watchers    = Field[[]core.ViewerInfo]{fWatchers, "watchers"}
	Leads       = Field[[]core.ViewerInfo]{fLeads, "leads"}
	OnlineUsers = Field[[]core.ViewerInfo]{fOnlineUsers, "onlineUsers"}

	ShowBidHistory    = Field[bool]{fShowBidHistory, "showBidHistory"}
	ShowDealerDialog  = Field[bool]{fShowDealerDialog, "showDealerDialog"}
	ShowMessageDialog = Field[bool]{fShowMessageDialog, "showMessageDialog"}
	ShowResultsDialog = Field[bool]{fShowResultsDialog, "showResultsDialog"}

	LotStatus           = Field[core.LotStatus]{fLotStatus, "lotStatus"}
	HammerState         = Field[core.HammerState]{fHammerState, "hammerState"}
	HammerDots          = Field[int]{fHammerDots, "hammerDots"}
	WithdrawalCountdown = Field[int]{fWithdrawalCountdown, "withdrawalCountdown"}
	WithdrawalDots      = Field[int]{fWithdrawalDots, "withdrawalDots"}

	CanControlLot            = Field[bool]{fCanControlLot, "canControlLot"}
	CanUseHammer             = Field[bool]{fCanUseHammer, "canUseHammer"}
	HammerRequiresReserveMet = Field[bool]{fHammerRequiresReserveMet, "hammerRequiresReserveMet"}
	SimulationEnabled        = Field[bool]{fSimulationEnabled, "simulationEnabled"}
	VoiceEnabled             = Field[bool]{fVoiceEnabled, "voiceEnabled"}
	AuctionEnded             = Field[bool]{fAuctionEnded, "auctionEnded"}

	CurrentHighestBid = Field[decimal.NullDecimal]{fCurrentHighestBid, "currentHighestBid"}
	StartPrice        = Field[decimal.Decimal]{fStartPrice, "startPrice"}
	AskingPrice       = Field[decimal.Decimal]{fAskingPrice, "askingPrice"}
	NewBidAmount      = Field[decimal.Decimal]{fNewBidAmount, "newBidAmount"}
	BidIncrement      = Field[decimal.Decimal]{fBidIncrement, "bidIncrement"}

	SelectedDealer = Field[*core.Dealer]{fSelectedDealer, "selectedDealer"}
	CurrentTime    = Field[time.Time]{fCurrentTime, "currentTime"}
)

// hammerInputs are the fields CanUseHammer is derived from.
var hammerInputs = []fieldID{fCurrentHighestBid, fCurrentLot, fLotStatus, fBids, fHammerRequiresReserveMet}

func defaults() []Update {
	return []Update{
		Auction.To(core.AuctionMeta{}),
		Lots.To([]*core.Lot{}),
		CurrentLot.To(nil),
		Dealers.To([]core.Dealer{}),
		Messages.To([]core.Message{}),
		Bids.To([]core.Bid{}),
		Viewers.To([]core.ViewerInfo{}),
		Watchers.To([]core.ViewerInfo{}),
		Leads.To([]core.ViewerInfo{}),
		OnlineUsers.To([]core.ViewerInfo{}),
		ShowBidHistory.To(false),
		ShowDealerDialog.To(false),
		ShowMessageDialog.To(false),
		ShowResultsDialog.To(false),
		LotStatus.To(core.LotStatusPending),
		HammerState.To(core.HammerAcceptingBids),
		HammerDots.To(0),
		WithdrawalCountdown.To(0),
		WithdrawalDots.To(0),
		CanControlLot.To(true),
		CanUseHammer.To(false),
		HammerRequiresReserveMet.To(true),
		SimulationEnabled.To(false),
		VoiceEnabled.To(true),
		AuctionEnded.To(false),
		CurrentHighestBid.To(decimal.NullDecimal{}),
		StartPrice.To(decimal.Zero),
		AskingPrice.To(decimal.Zero),
		NewBidAmount.To(decimal.Zero),
		BidIncrement.To(core.DefaultBidIncrement),
		SelectedDealer.To(nil),
		CurrentTime.To(time.Time{}),
	}
}
