// Package simulation generates synthetic bids for demonstrating a sale without
// real participants.
package simulation

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/sched"
)

// RandSource provides random numbers for bid timing and dealer selection.
// Tests inject a fixed sequence to make the generator deterministic.
type RandSource interface {
	// Intn returns a random integer in [0, n). Panics if n <= 0.
	Intn(n int) int
}

type mathRandSource struct{}

func (mathRandSource) Intn(n int) int {
	return rand.Intn(n)
}

var defaultRandSource RandSource = mathRandSource{}

// Config bounds the generator's timing and price range.
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	// CeilingFactor is applied to the reserve price to get the highest
	// amount the generator will bid.
	CeilingFactor decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		MinInterval:   2 * time.Second,
		MaxInterval:   6 * time.Second,
		CeilingFactor: decimal.RequireFromString("1.10"),
	}
}

// Params seeds one simulation run from the current lot.
type Params struct {
	Dealers      []core.Dealer
	AskingPrice  decimal.Decimal
	Increment    decimal.Decimal
	ReservePrice decimal.Decimal
}

type Option func(*Generator)

func WithRandSource(r RandSource) Option {
	return func(g *Generator) { g.rand = r }
}

func WithConfig(cfg Config) Option {
	return func(g *Generator) { g.cfg = cfg }
}

// WithActive installs the check run before every bid; when it reports false
// the generator stops instead of bidding.
func WithActive(active func() bool) Option {
	return func(g *Generator) { g.active = active }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// Generator emits SIMULATED bids at random intervals. It runs on the
// scheduler's loop and is not safe for concurrent use.
type Generator struct {
	sched  *sched.Scheduler
	emit   func(core.Bid)
	rand   RandSource
	cfg    Config
	active func() bool
	logger *slog.Logger

	running    bool
	task       sched.Token
	dealers    []core.Dealer
	asking     decimal.Decimal
	increment  decimal.Decimal
	ceiling    decimal.Decimal
	lastBidder string
}

// New returns a stopped generator that hands every bid it makes to emit.
func New(s *sched.Scheduler, emit func(core.Bid), opts ...Option) *Generator {
	g := &Generator{
		sched:  s,
		emit:   emit,
		rand:   defaultRandSource,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start begins a run. It is a no-op returning false when a run is already in
// progress or no non-proxy dealer is available.
func (g *Generator) Start(p Params) bool {
	if g.running {
		return false
	}

	dealers := make([]core.Dealer, 0, len(p.Dealers))
	for _, d := range p.Dealers {
		if !d.Type.IsProxy() {
			dealers = append(dealers, d)
		}
	}
	if len(dealers) == 0 {
		g.logger.Warn("simulation not started: no dealers available")
		return false
	}

	base := p.ReservePrice
	if base.IsZero() {
		base = p.AskingPrice
	}

	g.running = true
	g.dealers = dealers
	g.asking = p.AskingPrice
	g.increment = p.Increment
	g.ceiling = base.Mul(g.cfg.CeilingFactor).Round(0)
	g.lastBidder = ""
	g.scheduleNext()

	g.logger.Info("simulation started",
		"dealers", len(dealers),
		"asking", g.asking.String(),
		"ceiling", g.ceiling.String())
	return true
}

// Stop ends the run and cancels the pending bid, if any.
func (g *Generator) Stop() {
	if !g.running {
		return
	}
	g.running = false
	g.sched.Cancel(g.task)
	g.task = 0
	g.logger.Info("simulation stopped")
}

func (g *Generator) Running() bool {
	return g.running
}

// SetAskingPrice moves the price the next simulated bid is placed at.
func (g *Generator) SetAskingPrice(p decimal.Decimal) {
	g.asking = p
}

func (g *Generator) SetIncrement(d decimal.Decimal) {
	g.increment = d
}

// Ceiling returns the highest amount the current run will bid.
func (g *Generator) Ceiling() decimal.Decimal {
	return g.ceiling
}

func (g *Generator) scheduleNext() {
	g.task = g.sched.After(g.nextInterval(), g.fire)
}

func (g *Generator) nextInterval() time.Duration {
	span := g.cfg.MaxInterval - g.cfg.MinInterval
	if span <= 0 {
		return g.cfg.MinInterval
	}
	return g.cfg.MinInterval + time.Duration(g.rand.Intn(int(span/time.Millisecond)+1))*time.Millisecond
}

func (g *Generator) fire() {
	g.task = 0
	if !g.running {
		return
	}
	if g.active != nil && !g.active() {
		g.Stop()
		return
	}
	if g.asking.GreaterThan(g.ceiling) {
		g.logger.Info("simulation reached ceiling", "asking", g.asking.String(), "ceiling", g.ceiling.String())
		g.Stop()
		return
	}

	dealer := g.pickDealer()
	bid := core.Bid{
		ID:        uuid.NewString(),
		BidderID:  dealer.ID,
		Bidder:    dealer.DisplayName(),
		Amount:    g.asking,
		Timestamp: g.sched.Now(),
		Type:      dealer.Type,
		BidType:   core.BidTypeSimulated,
	}
	g.lastBidder = dealer.ID
	g.asking = g.asking.Add(g.increment)

	// Arm the next bid first so emit may stop the run.
	g.scheduleNext()
	g.emit(bid)
}

// pickDealer chooses a random dealer, never the one who made the previous
// simulated bid when another is available.
func (g *Generator) pickDealer() core.Dealer {
	candidates := g.dealers
	if len(g.dealers) > 1 && g.lastBidder != "" {
		candidates = make([]core.Dealer, 0, len(g.dealers)-1)
		for _, d := range g.dealers {
			if d.ID != g.lastBidder {
				candidates = append(candidates, d)
			}
		}
	}
	return candidates[g.rand.Intn(len(candidates))]
}
