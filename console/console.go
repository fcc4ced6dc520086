// Package console is the auctioneer console core: the lot lifecycle, bid
// intake, the hammer ceremony and the withdrawal countdown, all driven from
// one state.Store.
//
// A Console is not safe for concurrent use. Every exported method must be
// called on the executor's goroutine (sched.Loop.Call from other goroutines),
// which is also where timer callbacks and collaborator results are applied.
package console

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/receipt"
	"github.com/cloudx-io/auctionconsole/sched"
	"github.com/cloudx-io/auctionconsole/simulation"
	"github.com/cloudx-io/auctionconsole/state"
)

// Config holds the console's timings.
type Config struct {
	// HammerTick is the dot animation step; each stage lasts HammerStageTicks of them.
	HammerTick       time.Duration
	HammerStageTicks int

	WithdrawalTick    time.Duration
	WithdrawalSeconds int

	BidWarInterval time.Duration
	ClockTick      time.Duration

	// CallTimeout bounds every persistence call.
	CallTimeout time.Duration

	Simulation simulation.Config
}

func DefaultConfig() Config {
	return Config{
		HammerTick:        time.Second,
		HammerStageTicks:  3,
		WithdrawalTick:    time.Second,
		WithdrawalSeconds: 5,
		BidWarInterval:    time.Second,
		ClockTick:         time.Second,
		CallTimeout:       5 * time.Second,
		Simulation:        simulation.DefaultConfig(),
	}
}

type Option func(*Console)

func WithPersistence(p Persistence) Option {
	return func(c *Console) { c.persist = p }
}

func WithNotifier(n Notifier) Option {
	return func(c *Console) { c.notifier = n }
}

func WithEventSink(s EventSink) Option {
	return func(c *Console) { c.events = s }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) { c.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(c *Console) { c.cfg = cfg }
}

// WithRandSource makes the bid simulation deterministic.
func WithRandSource(r simulation.RandSource) Option {
	return func(c *Console) { c.randSource = r }
}

// WithReceiptSigner enables signed receipts for every finalized lot.
func WithReceiptSigner(s *receipt.Signer) Option {
	return func(c *Console) { c.signer = s }
}

// Console wires the store, scheduler, hammer and simulation together.
type Console struct {
	exec     sched.Executor
	sched    *sched.Scheduler
	store    *state.Store
	stats    core.Stats
	hammer   *Hammer
	sim      *simulation.Generator
	cfg      Config
	logger   *slog.Logger
	persist  Persistence
	notifier Notifier
	events   EventSink
	signer   *receipt.Signer

	randSource simulation.RandSource

	receipts         map[int]receipt.Encoded
	reserveAnnounced map[int]bool
	activityRequest  uint64

	bidWar      sched.Token
	bidWarLeft  int
	bidWarProxy core.DealerType

	clockTask sched.Token
}

// New builds a console whose timers run on clock and whose callbacks are
// posted to exec.
func New(clock sched.Clock, exec sched.Executor, opts ...Option) *Console {
	c := &Console{
		exec:             exec,
		sched:            sched.NewScheduler(clock, exec),
		store:            state.NewStore(),
		cfg:              DefaultConfig(),
		logger:           slog.Default(),
		persist:          nopPersistence{},
		notifier:         nopNotifier{},
		receipts:         make(map[int]receipt.Encoded),
		reserveAnnounced: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	simOpts := []simulation.Option{
		simulation.WithConfig(c.cfg.Simulation),
		simulation.WithLogger(c.logger),
		simulation.WithActive(c.trading),
	}
	if c.randSource != nil {
		simOpts = append(simOpts, simulation.WithRandSource(c.randSource))
	}
	c.sim = simulation.New(c.sched, c.onSimulatedBid, simOpts...)
	c.hammer = newHammer(c)

	c.store.OnLotChange(c.loadLotActivity)
	state.Observe(c.store, state.CurrentHighestBid, func(decimal.NullDecimal) { c.checkReserveMet() })
	state.Observe(c.store, state.CurrentLot, func(*core.Lot) { c.checkReserveMet() })

	return c
}

// Store exposes the console state for reading and observation.
func (c *Console) Store() *state.Store {
	return c.store
}

// Stats returns a snapshot of the running totals.
func (c *Console) Stats() core.Stats {
	return c.stats
}

func (c *Console) Hammer() *Hammer {
	return c.hammer
}

func (c *Console) Simulation() *simulation.Generator {
	return c.sim
}

func (c *Console) Scheduler() *sched.Scheduler {
	return c.sched
}

// Receipt returns the signed receipt issued when lotNumber was finalized.
func (c *Console) Receipt(lotNumber int) (receipt.Encoded, bool) {
	r, ok := c.receipts[lotNumber]
	return r, ok
}

func (c *Console) currentLot() *core.Lot {
	return state.Get(c.store, state.CurrentLot)
}

func (c *Console) speak(text string) {
	if state.Get(c.store, state.VoiceEnabled) {
		c.notifier.Speak(text)
	}
}

func (c *Console) publish(ev core.Event) {
	if c.events == nil {
		return
	}
	ev.AuctionID = state.Get(c.store, state.Auction).ID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.sched.Now()
	}
	c.events.Publish(ev)
}

// call runs fn against persistence off the loop with the configured timeout
// and applies the continuation it returns back on the loop.
func (c *Console) call(fn func(ctx context.Context) (apply func())) {
	timeout := c.cfg.CallTimeout
	c.exec.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	})
}
