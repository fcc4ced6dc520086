package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloudx-io/auctionconsole/broadcast"
	"github.com/cloudx-io/auctionconsole/config"
	"github.com/cloudx-io/auctionconsole/console"
	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/notify"
	"github.com/cloudx-io/auctionconsole/receipt"
	"github.com/cloudx-io/auctionconsole/sched"
	"github.com/cloudx-io/auctionconsole/storage"
	"github.com/cloudx-io/auctionconsole/storage/memory"
	"github.com/cloudx-io/auctionconsole/storage/redisstore"
)

var (
	_ console.Persistence = (*memory.Store)(nil)
	_ console.Persistence = (*redisstore.Store)(nil)
	_ console.EventSink   = (*broadcast.Sink)(nil)
	_ console.Notifier    = (*notify.Logger)(nil)
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Path to a dotenv file")
		receiptsDir = flag.String("receipts-dir", "", "Write each lot_finalized event to this directory")
		publicOut   = flag.String("public-key-out", "", "Write the receipt public key PEM to this path")
		bell        = flag.Bool("bell", false, "Ring the terminal bell on dealer bids")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *receiptsDir, *publicOut, *bell); err != nil {
		logger.Error("auction console failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, receiptsDir, publicOut string, bell bool) error {
	persist, closePersist, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePersist()

	signer, err := loadSigner(cfg.ReceiptKeyFile)
	if err != nil {
		return err
	}
	if publicOut != "" {
		pemText, err := signer.PublicKeyPEM()
		if err != nil {
			return fmt.Errorf("failed to encode public key: %w", err)
		}
		if err := os.WriteFile(publicOut, []byte(pemText), 0o644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		logger.Info("receipt public key written", "path", publicOut)
	}

	sinks := fanout{eventLog{logger: logger}}
	if cfg.NATSURL != "" {
		sink, nc, err := broadcast.Connect(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		sinks = append(sinks, sink)
		logger.Info("publishing events to NATS", "url", cfg.NATSURL)
	}
	if receiptsDir != "" {
		if err := os.MkdirAll(receiptsDir, 0o755); err != nil {
			return fmt.Errorf("failed to create receipts dir: %w", err)
		}
		sinks = append(sinks, receiptWriter{dir: receiptsDir, logger: logger})
	}

	var notifyOpts []notify.Option
	if bell {
		notifyOpts = append(notifyOpts, notify.WithBell(os.Stdout))
	}

	loop := sched.NewLoop(256)
	c := console.New(sched.RealClock(), loop,
		console.WithConfig(cfg.ConsoleConfig()),
		console.WithLogger(logger),
		console.WithPersistence(persist),
		console.WithNotifier(notify.New(logger, notifyOpts...)),
		console.WithEventSink(sinks),
		console.WithReceiptSigner(signer),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pilot := newAutopilot(c, logger, cancel)
	loop.Post(func() {
		applySettings(c, cfg)
		c.StartClock()
		c.Load(ctx, pilot.start)
	})

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := c.Stats()
	logger.Info("auction finished",
		"sold", stats.SoldLots,
		"no_sale", stats.NoSaleLots,
		"withdrawn", stats.WithdrawnLots,
		"sold_value", stats.TotalSoldValue.String(),
		"bids", stats.TotalBids(),
	)
	return nil
}

// applySettings copies the console toggles from cfg. It must run on the loop.
func applySettings(c *console.Console, cfg *config.Config) {
	c.SetVoiceEnabled(cfg.VoiceEnabled)
	c.SetHammerRequiresReserveMet(cfg.HammerRequiresReserveMet)
	c.SetSimulationEnabled(cfg.Simulation.Enabled)
}

func openPersistence(ctx context.Context, cfg *config.Config, logger *slog.Logger) (console.Persistence, func(), error) {
	switch cfg.Storage {
	case config.StorageRedis:
		store, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.AuctionID)
		if err != nil {
			return nil, nil, err
		}
		_, err = store.LoadAuctionMeta(ctx)
		if errors.Is(err, redisstore.ErrAuctionNotFound) && cfg.SeedFile != "" {
			seed, err := storage.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				store.Close()
				return nil, nil, err
			}
			seed.Auction.ID = cfg.Redis.AuctionID
			if err := store.Import(ctx, seed); err != nil {
				store.Close()
				return nil, nil, err
			}
			logger.Info("auction imported into Redis", "auction", cfg.Redis.AuctionID, "lots", len(seed.Lots))
		}
		return store, func() { store.Close() }, nil
	default:
		seed, err := storage.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		return memory.New(seed), func() {}, nil
	}
}

func loadSigner(path string) (*receipt.Signer, error) {
	if path == "" {
		return receipt.NewSigner()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt key: %w", err)
	}
	return receipt.NewSignerFromPEM(data)
}

// fanout publishes each event to every sink in order.
type fanout []console.EventSink

func (f fanout) Publish(ev core.Event) {
	for _, s := range f {
		s.Publish(ev)
	}
}

type eventLog struct {
	logger *slog.Logger
}

func (l eventLog) Publish(ev core.Event) {
	attrs := []any{"kind", ev.Kind, "lot", ev.LotNumber}
	switch {
	case ev.Bid != nil:
		attrs = append(attrs, "bidder", ev.Bid.Bidder, "amount", ev.Bid.Amount.String(), "type", ev.Bid.BidType)
	case ev.FinalState != nil:
		attrs = append(attrs, "status", ev.FinalState.Status, "price", ev.FinalState.SoldPrice.String(), "to", ev.FinalState.SoldTo)
	case ev.Hammer != "":
		attrs = append(attrs, "hammer", ev.Hammer)
	}
	l.logger.Info("event", attrs...)
}

// receiptWriter saves every finalized lot event as lot-<n>.json for the
// receipt verifier.
type receiptWriter struct {
	dir    string
	logger *slog.Logger
}

func (w receiptWriter) Publish(ev core.Event) {
	if ev.Kind != core.EventLotFinalized || ev.Receipt == "" {
		return
	}
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		w.logger.Error("failed to marshal receipt event", "lot", ev.LotNumber, "error", err)
		return
	}
	path := filepath.Join(w.dir, fmt.Sprintf("lot-%d.json", ev.LotNumber))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.logger.Error("failed to write receipt", "path", path, "error", err)
		return
	}
	w.logger.Info("receipt written", "lot", ev.LotNumber, "path", path, "at", ev.Timestamp.Format(time.RFC3339))
}
