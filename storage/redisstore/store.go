// Package redisstore keeps one sale in Redis.
//
// Keys are namespaced by auction ID:
//
//	auction:{id}:meta                        auction JSON
//	auction:{id}:lots                        hash of lot number to lot JSON
//	auction:{id}:lot_order                   sorted set of lot numbers, scored by catalogue position
//	auction:{id}:dealers                     list of dealer JSON
//	auction:{id}:lot:{n}:activity:{kind}     list of viewer JSON
//	auction:{id}:messages                    list of message JSON
//
// Sent messages are also published on the auction:{id}:messages channel.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/storage"
)

var ErrAuctionNotFound = errors.New("auction not found")

// Store implements the console's persistence against a Redis server.
type Store struct {
	client    *redis.Client
	auctionID string
	now       func() time.Time
}

// Connect dials addr and checks the connection before returning.
func Connect(ctx context.Context, addr, password string, db int, auctionID string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(rdb, auctionID), nil
}

// New wraps an existing client.
func New(client *redis.Client, auctionID string) *Store {
	return &Store{client: client, auctionID: auctionID, now: time.Now}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(parts ...string) string {
	k := "auction:" + s.auctionID
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) activityKey(lotNumber int, kind core.ActivityKind) string {
	return s.key("lot", strconv.Itoa(lotNumber), "activity", string(kind))
}

// MessageChannel is the pub/sub channel sent messages are published on.
func (s *Store) MessageChannel() string {
	return s.key("messages")
}

// Import writes seed into Redis, replacing whatever the auction held.
func (s *Store) Import(ctx context.Context, seed storage.Seed) error {
	meta, err := json.Marshal(seed.Auction)
	if err != nil {
		return fmt.Errorf("failed to marshal auction: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key("lots"), s.key("lot_order"), s.key("dealers"))
		pipe.Set(ctx, s.key("meta"), meta, 0)

		for i, lot := range seed.Lots {
			data, err := json.Marshal(lot)
			if err != nil {
				return fmt.Errorf("failed to marshal lot %d: %w", lot.LotNumber, err)
			}
			field := strconv.Itoa(lot.LotNumber)
			pipe.HSet(ctx, s.key("lots"), field, data)
			pipe.ZAdd(ctx, s.key("lot_order"), redis.Z{Score: float64(i), Member: field})
		}

		for _, d := range seed.Dealers {
			data, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("failed to marshal dealer %s: %w", d.ID, err)
			}
			pipe.RPush(ctx, s.key("dealers"), data)
		}

		cleared := make(map[string]bool)
		for _, a := range seed.Activity {
			k := s.activityKey(a.LotNumber, a.Kind)
			if !cleared[k] {
				pipe.Del(ctx, k)
				cleared[k] = true
			}
			for _, u := range a.Users {
				data, err := json.Marshal(u)
				if err != nil {
					return fmt.Errorf("failed to marshal viewer %s: %w", u.UserID, err)
				}
				pipe.RPush(ctx, k, data)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import auction %s: %w", s.auctionID, err)
	}
	return nil
}

func (s *Store) LoadAuctionMeta(ctx context.Context) (core.AuctionMeta, error) {
	data, err := s.client.Get(ctx, s.key("meta")).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.AuctionMeta{}, fmt.Errorf("auction %s: %w", s.auctionID, ErrAuctionNotFound)
	}
	if err != nil {
		return core.AuctionMeta{}, fmt.Errorf("failed to get auction: %w", err)
	}

	var meta core.AuctionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return core.AuctionMeta{}, fmt.Errorf("failed to decode auction: %w", err)
	}
	return meta, nil
}

// LoadLots returns every lot in catalogue order.
func (s *Store) LoadLots(ctx context.Context) ([]*core.Lot, error) {
	order, err := s.client.ZRange(ctx, s.key("lot_order"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get lot order: %w", err)
	}
	if len(order) == 0 {
		return []*core.Lot{}, nil
	}

	values, err := s.client.HMGet(ctx, s.key("lots"), order...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get lots: %w", err)
	}

	lots := make([]*core.Lot, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Ordered but missing from the hash
			continue
		}
		var lot core.Lot
		if err := json.Unmarshal([]byte(raw), &lot); err != nil {
			return nil, fmt.Errorf("failed to decode lot %s: %w", order[i], err)
		}
		lots = append(lots, &lot)
	}
	return lots, nil
}

// SaveLot upserts lot. A lot not seen before is appended to the catalogue.
func (s *Store) SaveLot(ctx context.Context, lot core.Lot) (core.Lot, error) {
	data, err := json.Marshal(lot)
	if err != nil {
		return core.Lot{}, fmt.Errorf("failed to marshal lot %d: %w", lot.LotNumber, err)
	}
	field := strconv.Itoa(lot.LotNumber)

	next, err := s.client.ZCard(ctx, s.key("lot_order")).Result()
	if err != nil {
		return core.Lot{}, fmt.Errorf("failed to count lots: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key("lots"), field, data)
		pipe.ZAddNX(ctx, s.key("lot_order"), redis.Z{Score: float64(next), Member: field})
		return nil
	})
	if err != nil {
		return core.Lot{}, fmt.Errorf("failed to save lot %d: %w", lot.LotNumber, err)
	}
	return lot, nil
}

func (s *Store) LoadDealers(ctx context.Context) ([]core.Dealer, error) {
	values, err := s.client.LRange(ctx, s.key("dealers"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get dealers: %w", err)
	}
	dealers := make([]core.Dealer, 0, len(values))
	for _, raw := range values {
		var d core.Dealer
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("failed to decode dealer: %w", err)
		}
		dealers = append(dealers, d)
	}
	return dealers, nil
}

func (s *Store) LoadLotActivity(ctx context.Context, lotNumber int, kind core.ActivityKind) ([]core.ViewerInfo, error) {
	values, err := s.client.LRange(ctx, s.activityKey(lotNumber, kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s for lot %d: %w", kind, lotNumber, err)
	}
	users := make([]core.ViewerInfo, 0, len(values))
	for _, raw := range values {
		var u core.ViewerInfo
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("failed to decode viewer: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// RecordActivity appends users to the audience list of a lot.
func (s *Store) RecordActivity(ctx context.Context, lotNumber int, kind core.ActivityKind, users ...core.ViewerInfo) error {
	if len(users) == 0 {
		return nil
	}
	values := make([]any, 0, len(users))
	for _, u := range users {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("failed to marshal viewer %s: %w", u.UserID, err)
		}
		values = append(values, data)
	}
	if err := s.client.RPush(ctx, s.activityKey(lotNumber, kind), values...).Err(); err != nil {
		return fmt.Errorf("failed to record %s for lot %d: %w", kind, lotNumber, err)
	}
	return nil
}

// SendMessage stores the message and publishes it to subscribers.
func (s *Store) SendMessage(ctx context.Context, text string, global bool, recipientID string) (core.Message, error) {
	msg := core.Message{
		ID:          uuid.NewString(),
		Text:        text,
		Global:      global,
		RecipientID: recipientID,
		SentAt:      s.now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key("messages"), data)
		pipe.Publish(ctx, s.MessageChannel(), data)
		return nil
	})
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// Messages returns every message sent in the auction.
func (s *Store) Messages(ctx context.Context) ([]core.Message, error) {
	values, err := s.client.LRange(ctx, s.key("messages"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	msgs := make([]core.Message, 0, len(values))
	for _, raw := range values {
		var m core.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
