// Package broadcast fans console events out over NATS.
//
// Events are published as JSON on
//
//	auction.{auction}.lot.{n}.{kind}   for lot events
//	auction.{auction}.{kind}           for auction events
package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/cloudx-io/auctionconsole/core"
)

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Sink publishes every event it receives. Failures are logged and dropped.
type Sink struct {
	pub    Publisher
	logger *slog.Logger
}

func NewSink(pub Publisher, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{pub: pub, logger: logger}
}

// Connect dials url and returns a sink on the new connection.
func Connect(url string, logger *slog.Logger) (*Sink, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("auction-console"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewSink(nc, logger), nc, nil
}

func (s *Sink) Publish(ev core.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal event", "kind", ev.Kind, "lot", ev.LotNumber, "error", err)
		return
	}
	subject := Subject(ev)
	if err := s.pub.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
		return
	}
	s.logger.Debug("event published", "subject", subject)
}

// Subject returns the subject ev is published on.
func Subject(ev core.Event) string {
	parts := []string{"auction", token(ev.AuctionID)}
	if ev.LotNumber > 0 {
		parts = append(parts, "lot", strconv.Itoa(ev.LotNumber))
	}
	parts = append(parts, string(ev.Kind))
	return strings.Join(parts, ".")
}

// AuctionSubjects matches every event of one auction.
func AuctionSubjects(auctionID string) string {
	return "auction." + token(auctionID) + ".>"
}

// Subscriber is the part of *nats.Conn that Subscribe needs.
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Subscribe calls handle for each event published for auctionID.
// Messages that do not decode are logged and skipped.
func Subscribe(nc Subscriber, auctionID string, logger *slog.Logger, handle func(core.Event)) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sub, err := nc.Subscribe(AuctionSubjects(auctionID), func(msg *nats.Msg) {
		ev, err := Decode(msg)
		if err != nil {
			logger.Warn("failed to decode event", "subject", msg.Subject, "error", err)
			return
		}
		handle(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Decode parses an event message.
func Decode(msg *nats.Msg) (core.Event, error) {
	var ev core.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return core.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return ev, nil
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
