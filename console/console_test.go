package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/sched"
	"github.com/cloudx-io/auctionconsole/state"
)

var testEpoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

var (
	dealerAda  = core.Dealer{ID: "d1", FirstName: "Ada", LastName: "Moss", Company: "Moss Motors", Type: core.DealerStandard}
	dealerBen  = core.Dealer{ID: "d2", FirstName: "Ben", LastName: "Hale", Type: core.DealerVIP}
	dealerCara = core.Dealer{ID: "d3", FirstName: "Cara", LastName: "Lind", Type: core.DealerPremium}
	proxyOne   = core.Dealer{ID: "p1", FirstName: "Bid", LastName: "User 1", Type: core.DealerBidUser1}
	proxyTwo   = core.Dealer{ID: "p2", FirstName: "Bid", LastName: "User 2", Type: core.DealerBidUser2}
)

func testLots() []*core.Lot {
	return []*core.Lot{
		{LotNumber: 1, Make: "BMW", Model: "320d", Year: 2019, ReservePrice: decimal.NewFromInt(45000), InitialAskingPrice: decimal.NewFromInt(36000)},
		{LotNumber: 2, Make: "Ford", Model: "Focus", Year: 2020, ReservePrice: decimal.NewFromInt(20000), InitialAskingPrice: decimal.NewFromInt(15000)},
		{LotNumber: 3, Make: "Volvo", Model: "XC60", Year: 2022, ReservePrice: decimal.NewFromInt(38000), InitialAskingPrice: decimal.NewFromInt(30000)},
	}
}

// mockRandSource provides a deterministic random source for testing
type mockRandSource struct {
	sequence []int
	index    int
}

func (m *mockRandSource) Intn(n int) int {
	if m.index >= len(m.sequence) {
		return 0
	}
	val := m.sequence[m.index] % n
	m.index++
	return val
}

type fakePersistence struct {
	meta    core.AuctionMeta
	lots    []*core.Lot
	dealers []core.Dealer

	saved         []core.Lot
	sent          []core.Message
	activityCalls []int
	loadDeadline  time.Time

	failLoad    bool
	failSave    bool
	failMessage bool
}

var errStorageDown = errors.New("storage unavailable")

func (f *fakePersistence) LoadAuctionMeta(ctx context.Context) (core.AuctionMeta, error) {
	f.loadDeadline, _ = ctx.Deadline()
	if f.failLoad {
		return core.AuctionMeta{}, errStorageDown
	}
	return f.meta, nil
}

func (f *fakePersistence) LoadLots(context.Context) ([]*core.Lot, error) {
	if f.failLoad {
		return nil, errStorageDown
	}
	return f.lots, nil
}

func (f *fakePersistence) SaveLot(_ context.Context, lot core.Lot) (core.Lot, error) {
	if f.failSave {
		return core.Lot{}, errStorageDown
	}
	f.saved = append(f.saved, lot)
	return lot, nil
}

func (f *fakePersistence) LoadDealers(context.Context) ([]core.Dealer, error) {
	if f.failLoad {
		return nil, errStorageDown
	}
	return f.dealers, nil
}

func (f *fakePersistence) LoadLotActivity(_ context.Context, lotNumber int, kind core.ActivityKind) ([]core.ViewerInfo, error) {
	if kind == core.ActivityViewers {
		f.activityCalls = append(f.activityCalls, lotNumber)
	}
	if f.failLoad {
		return nil, errStorageDown
	}
	return []core.ViewerInfo{{UserID: fmt.Sprintf("%s-%d", kind, lotNumber)}}, nil
}

func (f *fakePersistence) SendMessage(_ context.Context, text string, global bool, recipientID string) (core.Message, error) {
	if f.failMessage {
		return core.Message{}, errStorageDown
	}
	msg := core.Message{ID: fmt.Sprintf("m%d", len(f.sent)+1), Text: text, Global: global, RecipientID: recipientID}
	f.sent = append(f.sent, msg)
	return msg, nil
}

type notice struct {
	kind    core.NoticeKind
	message string
}

type recordingNotifier struct {
	spoken    []string
	notices   []notice
	bidSounds int
}

func (r *recordingNotifier) Speak(text string) {
	r.spoken = append(r.spoken, text)
}

func (r *recordingNotifier) Notify(kind core.NoticeKind, message string) {
	r.notices = append(r.notices, notice{kind: kind, message: message})
}

func (r *recordingNotifier) PlayBidSound() {
	r.bidSounds++
}

func (r *recordingNotifier) count(kind core.NoticeKind) int {
	n := 0
	for _, nt := range r.notices {
		if nt.kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) spokeContaining(substr string) int {
	n := 0
	for _, s := range r.spoken {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

type recordingSink struct {
	events []core.Event
}

func (r *recordingSink) Publish(ev core.Event) {
	r.events = append(r.events, ev)
}

func (r *recordingSink) count(kind core.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// queuedExecutor holds loop work until drained, so tests can interleave
// collaborator results with other console calls.
type queuedExecutor struct {
	queue []func()
}

func (q *queuedExecutor) Post(fn func()) {
	q.queue = append(q.queue, fn)
}

func (q *queuedExecutor) Go(work func() func()) {
	if apply := work(); apply != nil {
		q.Post(apply)
	}
}

func (q *queuedExecutor) drain() {
	for len(q.queue) > 0 {
		fn := q.queue[0]
		q.queue = q.queue[1:]
		fn()
	}
}

type harness struct {
	c        *Console
	clock    *sched.FakeClock
	persist  *fakePersistence
	notifier *recordingNotifier
	events   *recordingSink
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		clock: sched.NewFakeClock(testEpoch),
		persist: &fakePersistence{
			meta:    core.AuctionMeta{ID: "auction-1", Title: "Thursday Trade Sale", Currency: "GBP"},
			lots:    testLots(),
			dealers: []core.Dealer{dealerAda, dealerBen, dealerCara, proxyOne, proxyTwo},
		},
		notifier: &recordingNotifier{},
		events:   &recordingSink{},
	}
	opts = append([]Option{
		WithPersistence(h.persist),
		WithNotifier(h.notifier),
		WithEventSink(h.events),
		WithRandSource(&mockRandSource{}),
		WithLogger(discardLogger()),
	}, opts...)
	h.c = New(h.clock, sched.Inline{}, opts...)

	loaded := false
	h.c.Load(context.Background(), func() { loaded = true })
	assert.True(t, loaded)
	return h
}

func (h *harness) bid(t *testing.T, d core.Dealer, amount int64) {
	t.Helper()
	err := h.c.OnBidPlaced(dealerBid(d, amount))
	assert.NoError(t, err)
}

func dealerBid(d core.Dealer, amount int64) core.Bid {
	return core.Bid{
		BidderID: d.ID,
		Bidder:   d.DisplayName(),
		Amount:   decimal.NewFromInt(amount),
		Type:     d.Type,
		BidType:  core.BidTypeStandard,
	}
}

func get[T any](h *harness, f state.Field[T]) T {
	return state.Get(h.c.Store(), f)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
