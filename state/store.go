// Package state holds the canonical auction state of one console.
//
// The Store is not safe for concurrent use. It is owned by the console's loop
// and every read and write happens on that goroutine, so a read followed by
// the write that depends on it is never interleaved with another mutation.
package state

import (
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
)

// Store is a typed key-value container with synchronous change notification.
type Store struct {
	values      [numFields]any
	observers   [numFields][]*observer
	onLotChange func(lot *core.Lot)
}

type observer struct {
	fn     func(any)
	active bool
}

// NewStore returns a store holding the default lot-start state.
func NewStore() *Store {
	s := &Store{}
	for _, u := range defaults() {
		s.values[u.id] = u.value
	}
	return s
}

// Get returns the current value of f.
func Get[T any](s *Store, f Field[T]) T {
	v, _ := s.values[f.id].(T)
	return v
}

// Observe calls fn with the current value of f right away and again after
// every Set that writes f, until the returned cancel func is called.
func Observe[T any](s *Store, f Field[T], fn func(T)) (cancel func()) {
	obs := &observer{
		active: true,
		fn: func(v any) {
			typed, _ := v.(T)
			fn(typed)
		},
	}
	s.observers[f.id] = append(s.observers[f.id], obs)
	obs.fn(s.values[f.id])

	return func() {
		if !obs.active {
			return
		}
		obs.active = false
		list := s.observers[f.id]
		for i, o := range list {
			if o == obs {
				s.observers[f.id] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// OnLotChange registers the hook run after CurrentLot is set to a different lot.
func (s *Store) OnLotChange(fn func(lot *core.Lot)) {
	s.onLotChange = fn
}

// Set applies all updates, recomputes CanUseHammer when one of its inputs was
// written, then notifies observers of every written field before returning.
func (s *Store) Set(updates ...Update) {
	if len(updates) == 0 {
		return
	}

	prevLot := Get(s, CurrentLot)

	var written [numFields]bool
	order := make([]fieldID, 0, len(updates)+1)
	for _, u := range updates {
		if u.id == fCanUseHammer {
			// derived; only recomputeCanUseHammer and Reset may write it
			continue
		}
		s.values[u.id] = u.value
		if !written[u.id] {
			written[u.id] = true
			order = append(order, u.id)
		}
	}

	for _, id := range hammerInputs {
		if written[id] {
			if s.recomputeCanUseHammer() {
				order = append(order, fCanUseHammer)
			}
			break
		}
	}

	s.notify(order)

	if written[fCurrentLot] {
		if lot := Get(s, CurrentLot); lot != prevLot && lot != nil && s.onLotChange != nil {
			s.onLotChange(lot)
		}
	}
}

// RecomputeCanUseHammer re-derives CanUseHammer and notifies if it changed.
func (s *Store) RecomputeCanUseHammer() {
	if s.recomputeCanUseHammer() {
		s.notify([]fieldID{fCanUseHammer})
	}
}

// AddBid prepends bid to the bid list and moves the price fields on.
func (s *Store) AddBid(bid core.Bid) {
	bids := Get(s, Bids)
	next := make([]core.Bid, 0, len(bids)+1)
	next = append(next, bid)
	next = append(next, bids...)

	s.Set(
		Bids.To(next),
		CurrentHighestBid.To(decimal.NewNullDecimal(bid.Amount)),
		AskingPrice.To(bid.Amount.Add(Get(s, BidIncrement))),
	)
}

// ResetLotState returns the current lot to its lot-start state.
func (s *Store) ResetLotState() {
	s.Set(lotStartUpdates(Get(s, CurrentLot))...)
}

// SelectLot makes lot current and resets the lot state in a single Set, so
// observers never see the new lot paired with the previous lot's bids.
func (s *Store) SelectLot(lot *core.Lot) {
	s.Set(append([]Update{CurrentLot.To(lot)}, lotStartUpdates(lot)...)...)
}

// Reset restores every field to its default, CanUseHammer included.
func (s *Store) Reset() {
	order := make([]fieldID, 0, numFields)
	for _, u := range defaults() {
		s.values[u.id] = u.value
		order = append(order, u.id)
	}
	s.notify(order)
}

func lotStartUpdates(lot *core.Lot) []Update {
	start := decimal.Zero
	if lot != nil {
		start = lot.InitialAskingPrice
	}
	return []Update{
		LotStatus.To(core.LotStatusPending),
		HammerState.To(core.HammerAcceptingBids),
		HammerDots.To(0),
		WithdrawalCountdown.To(0),
		WithdrawalDots.To(0),
		Bids.To([]core.Bid{}),
		CurrentHighestBid.To(decimal.NullDecimal{}),
		StartPrice.To(start),
		AskingPrice.To(start),
		NewBidAmount.To(start),
		BidIncrement.To(core.DefaultBidIncrement),
		CanControlLot.To(true),
	}
}

// canUseHammer is the pure rule the derived field must always equal.
func canUseHammer(status core.LotStatus, bids []core.Bid, requiresReserve bool, highest decimal.NullDecimal, lot *core.Lot) bool {
	if status != core.LotStatusActive || len(bids) == 0 {
		return false
	}
	if !requiresReserve {
		return true
	}
	if !highest.Valid || lot == nil {
		return false
	}
	return core.MeetsReserve(highest.Decimal, lot.ReservePrice)
}

func (s *Store) recomputeCanUseHammer() (changed bool) {
	next := canUseHammer(
		Get(s, LotStatus),
		Get(s, Bids),
		Get(s, HammerRequiresReserveMet),
		Get(s, CurrentHighestBid),
		Get(s, CurrentLot),
	)
	prev := Get(s, CanUseHammer)
	s.values[fCanUseHammer] = next
	return prev != next
}

// notify delivers the current value of each field in order. Values are read
// per observer so a nested Set made by an earlier observer is never
// followed by a stale delivery.
func (s *Store) notify(order []fieldID) {
	for _, id := range order {
		observers := append([]*observer(nil), s.observers[id]...)
		for _, obs := range observers {
			if obs.active {
				obs.fn(s.values[id])
			}
		}
	}
}
