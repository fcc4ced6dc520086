// Package memory is an in-process persistence backend for the console.
// It holds one auction and is safe for concurrent use.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/storage"
)

var ErrLotNotFound = errors.New("lot not found")

type activityKey struct {
	lot  int
	kind core.ActivityKind
}

type Store struct {
	mu sync.RWMutex

	meta     core.AuctionMeta
	order    []int
	lots     map[int]core.Lot
	dealers  []core.Dealer
	activity map[activityKey][]core.ViewerInfo
	messages []core.Message

	now func() time.Time
}

type Option func(*Store)

// WithNow sets the clock used to stamp sent messages.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a Store holding a copy of seed.
func New(seed storage.Seed, opts ...Option) *Store {
	s := &Store{
		meta:     seed.Auction,
		lots:     make(map[int]core.Lot, len(seed.Lots)),
		dealers:  slices.Clone(seed.Dealers),
		activity: make(map[activityKey][]core.ViewerInfo),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, lot := range seed.Lots {
		if _, dup := s.lots[lot.LotNumber]; !dup {
			s.order = append(s.order, lot.LotNumber)
		}
		s.lots[lot.LotNumber] = cloneLot(lot)
	}
	for _, a := range seed.Activity {
		key := activityKey{lot: a.LotNumber, kind: a.Kind}
		s.activity[key] = append(s.activity[key], a.Users...)
	}
	return s
}

func (s *Store) LoadAuctionMeta(ctx context.Context) (core.AuctionMeta, error) {
	if err := ctx.Err(); err != nil {
		return core.AuctionMeta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, nil
}

// LoadLots returns copies of every lot in catalogue order.
func (s *Store) LoadLots(ctx context.Context) ([]*core.Lot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := make([]*core.Lot, 0, len(s.order))
	for _, n := range s.order {
		lot := cloneLot(s.lots[n])
		lots = append(lots, &lot)
	}
	return lots, nil
}

func (s *Store) SaveLot(ctx context.Context, lot core.Lot) (core.Lot, error) {
	if err := ctx.Err(); err != nil {
		return core.Lot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lots[lot.LotNumber]; !ok {
		s.order = append(s.order, lot.LotNumber)
	}
	s.lots[lot.LotNumber] = cloneLot(lot)
	return cloneLot(lot), nil
}

// Lot returns the stored copy of one lot.
func (s *Store) Lot(lotNumber int) (core.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[lotNumber]
	if !ok {
		return core.Lot{}, fmt.Errorf("lot %d: %w", lotNumber, ErrLotNotFound)
	}
	return cloneLot(lot), nil
}

func (s *Store) LoadDealers(ctx context.Context) ([]core.Dealer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dealers), nil
}

func (s *Store) LoadLotActivity(ctx context.Context, lotNumber int, kind core.ActivityKind) ([]core.ViewerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := s.activity[activityKey{lot: lotNumber, kind: kind}]
	if users == nil {
		return []core.ViewerInfo{}, nil
	}
	return slices.Clone(users), nil
}

// RecordActivity appends users to the audience list of a lot.
func (s *Store) RecordActivity(lotNumber int, kind core.ActivityKind, users ...core.ViewerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activityKey{lot: lotNumber, kind: kind}
	s.activity[key] = append(s.activity[key], users...)
}

func (s *Store) SendMessage(ctx context.Context, text string, global bool, recipientID string) (core.Message, error) {
	if err := ctx.Err(); err != nil {
		return core.Message{}, err
	}
	msg := core.Message{
		ID:          uuid.NewString(),
		Text:        text,
		Global:      global,
		RecipientID: recipientID,
		SentAt:      s.now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// Messages returns every message sent so far.
func (s *Store) Messages() []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

func cloneLot(lot core.Lot) core.Lot {
	if lot.Status != nil {
		st := *lot.Status
		lot.Status = &st
	}
	if lot.FinalState != nil {
		fs := *lot.FinalState
		fs.Bids = slices.Clone(fs.Bids)
		lot.FinalState = &fs
	}
	return lot
}
