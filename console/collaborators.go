package console

import (
	"context"
	"errors"

	"github.com/cloudx-io/auctionconsole/core"
)

// Persistence stores the sale. Calls are made off the console loop and
// their results are applied back on it; a failing call never stops a lot.
type Persistence interface {
	LoadAuctionMeta(ctx context.Context) (core.AuctionMeta, error)
	LoadLots(ctx context.Context) ([]*core.Lot, error)
	// SaveLot upserts lot keyed by its lot number.
	SaveLot(ctx context.Context, lot core.Lot) (core.Lot, error)
	LoadDealers(ctx context.Context) ([]core.Dealer, error)
	LoadLotActivity(ctx context.Context, lotNumber int, kind core.ActivityKind) ([]core.ViewerInfo, error)
	SendMessage(ctx context.Context, text string, global bool, recipientID string) (core.Message, error)
}

// Notifier is the console's voice and toast output. Every method is fire-and-forget.
type Notifier interface {
	Speak(text string)
	Notify(kind core.NoticeKind, message string)
	PlayBidSound()
}

// EventSink receives auction events for fan-out to other subscribers.
type EventSink interface {
	Publish(ev core.Event)
}

var errNoPersistence = errors.New("no persistence configured")

type nopPersistence struct{}

func (nopPersistence) LoadAuctionMeta(context.Context) (core.AuctionMeta, error) {
	return core.AuctionMeta{}, errNoPersistence
}

func (nopPersistence) LoadLots(context.Context) ([]*core.Lot, error) {
	return nil, errNoPersistence
}

func (nopPersistence) SaveLot(_ context.Context, lot core.Lot) (core.Lot, error) {
	return lot, nil
}

func (nopPersistence) LoadDealers(context.Context) ([]core.Dealer, error) {
	return nil, errNoPersistence
}

func (nopPersistence) LoadLotActivity(context.Context, int, core.ActivityKind) ([]core.ViewerInfo, error) {
	return nil, nil
}

func (nopPersistence) SendMessage(context.Context, string, bool, string) (core.Message, error) {
	return core.Message{}, errNoPersistence
}

type nopNotifier struct{}

func (nopNotifier) Speak(string)                   {}
func (nopNotifier) Notify(core.NoticeKind, string) {}
func (nopNotifier) PlayBidSound()                  {}
