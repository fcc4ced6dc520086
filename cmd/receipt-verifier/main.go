package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/cloudx-io/auctionconsole/broadcast"
	"github.com/cloudx-io/auctionconsole/core"
	"github.com/cloudx-io/auctionconsole/receipt"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	var (
		receiptPath   = flag.String("receipt", "", "Path to a lot_finalized event JSON or a bare encoded receipt (required)")
		publicKeyPath = flag.String("public-key", "", "Path to the console's public key PEM file (required)")
		bidsPath      = flag.String("bids", "", "Path to a JSON array of bids to check against the receipt")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		followURL     = flag.String("follow", "", "NATS URL to follow live lot_finalized events from")
		auctionID     = flag.String("auction", "", "Auction ID to follow (required with --follow)")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	following := *followURL != ""
	missing := *publicKeyPath == "" || (!following && *receiptPath == "") || (following && *auctionID == "")
	if *help || missing {
		showUsage()
		if missing {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if following {
		publicKey, err := readPublicKey(*publicKeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
			os.Exit(2)
		}
		os.Exit(follow(*followURL, *auctionID, publicKey, *outputFormat))
	}

	encoded, bids, err := readReceipt(*receiptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	if *bidsPath != "" {
		bids, err = readBids(*bidsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading bids: %v\n", err)
			os.Exit(2)
		}
	}

	publicKey, err := readPublicKey(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	result, err := verify(encoded, bids, publicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Sale Receipt Verifier")
	logger.Info("")
	logger.Info("Verifies the signed receipt the auction console issues for each finalized lot.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  receipt-verifier --receipt <path> --public-key <pem> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --receipt <path>                  lot_finalized event JSON or bare receipt text")
	logger.Info("  --public-key <path>               Path to public key PEM file")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --bids <path>                     JSON array of bids to check the history hash against")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --follow <nats-url>               Verify receipts live as lots finalize (replaces --receipt)")
	logger.Info("  --auction <id>                    Auction to follow (required with --follow)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("When --receipt is an event, its finalState bids are checked unless --bids is given.")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

func readPublicKey(path string) (*ecdsa.PublicKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return receipt.ParsePublicKeyPEM(pemData)
}

// verify checks the signature of encoded and, when bids is not nil, the bid
// history it commits to.
func verify(encoded receipt.Encoded, bids []core.Bid, publicKey *ecdsa.PublicKey) (*receipt.ValidationResult, error) {
	coseBytes, err := encoded.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	result, err := receipt.Verify(coseBytes, publicKey)
	if err != nil {
		return nil, err
	}
	if bids != nil {
		result.CheckBidHistory(bids)
	}
	return result, nil
}

// verifyEvent verifies the receipt carried by a lot_finalized event against
// its own final state. ok is false for events without a receipt.
func verifyEvent(ev core.Event, publicKey *ecdsa.PublicKey) (result *receipt.ValidationResult, ok bool, err error) {
	if ev.Kind != core.EventLotFinalized || ev.Receipt == "" {
		return nil, false, nil
	}
	var bids []core.Bid
	if ev.FinalState != nil {
		bids = ev.FinalState.Bids
		if bids == nil {
			bids = []core.Bid{}
		}
	}
	result, err = verify(receipt.Encoded(ev.Receipt), bids, publicKey)
	return result, true, err
}

// follow verifies every receipt published for auctionID until interrupted.
// It returns 1 if any receipt failed.
func follow(url, auctionID string, publicKey *ecdsa.PublicKey, format string) int {
	nc, err := nats.Connect(url, nats.Name("receipt-verifier"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to NATS: %v\n", err)
		return 2
	}
	defer nc.Close()

	var failed atomic.Int32
	events := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sub, err := broadcast.Subscribe(nc, auctionID, events, func(ev core.Event) {
		result, ok, err := verifyEvent(ev, publicKey)
		if !ok {
			return
		}
		if err != nil {
			failed.Add(1)
			logger.Info(fmt.Sprintf("Lot %d: ✗ FAILED (%v)", ev.LotNumber, err))
			return
		}
		if !result.IsValid() {
			failed.Add(1)
		}
		if format == "json" {
			if err := outputJSON(result); err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			}
			return
		}
		outputSummary(ev.LotNumber, result)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error subscribing: %v\n", err)
		return 2
	}
	defer sub.Unsubscribe()

	logger.Info(fmt.Sprintf("Following %s on %s", broadcast.AuctionSubjects(auctionID), url))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if failed.Load() > 0 {
		return 1
	}
	return 0
}

func outputSummary(lotNumber int, result *receipt.ValidationResult) {
	status := "✓ PASSED"
	if !result.IsValid() {
		status = "✗ FAILED"
	}
	line := fmt.Sprintf("Lot %d: %s", lotNumber, status)
	if p := result.Payload; p != nil {
		line += fmt.Sprintf(" %s %s %s to %s", p.Status, p.SoldPrice, p.Currency, p.SoldTo)
	}
	logger.Info(line)
}

// readReceipt accepts either a published event or the encoded receipt on
// its own. Bids are returned only for an event carrying a final state.
func readReceipt(path string) (receipt.Encoded, []core.Bid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if !strings.HasPrefix(text, "{") {
		if text == "" {
			return "", nil, fmt.Errorf("empty receipt file")
		}
		return receipt.Encoded(text), nil, nil
	}

	var ev core.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if ev.Receipt == "" {
		return "", nil, fmt.Errorf("missing receipt field in event")
	}

	var bids []core.Bid
	if ev.FinalState != nil {
		bids = ev.FinalState.Bids
		if bids == nil {
			bids = []core.Bid{}
		}
	}
	return receipt.Encoded(ev.Receipt), bids, nil
}

func readBids(path string) ([]core.Bid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	bids := []core.Bid{}
	if err := json.Unmarshal(data, &bids); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return bids, nil
}

func outputText(result *receipt.ValidationResult) {
	logger.Info("Sale Receipt Verifier")
	logger.Info("=====================")
	logger.Info("")

	if p := result.Payload; p != nil {
		logger.Info("Receipt:")
		logger.Info("--------")
		logger.Info(fmt.Sprintf("  Auction:      %s", p.AuctionID))
		logger.Info(fmt.Sprintf("  Lot:          %d %s", p.LotNumber, p.Title))
		logger.Info(fmt.Sprintf("  Outcome:      %s", p.Status))
		logger.Info(fmt.Sprintf("  Price:        %s %s (reserve %s, %s%%)", p.SoldPrice, p.Currency, p.ReservePrice, p.Performance))
		logger.Info(fmt.Sprintf("  Sold to:      %s", p.SoldTo))
		logger.Info(fmt.Sprintf("  Bids:         %d", p.BidCount))
		logger.Info("")
	}

	logger.Info("Details:")
	for _, d := range result.ValidationDetails {
		logger.Info("  " + d)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Structure Valid:   %v", result.StructureValid))
	logger.Info(fmt.Sprintf("  Signature Valid:   %v", result.SignatureValid))
	if result.HistoryChecked {
		logger.Info(fmt.Sprintf("  History Match:     %v", result.HistoryMatch))
	}

	logger.Info("")
	logger.Info("=====================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *receipt.ValidationResult) error {
	output := map[string]any{
		"valid":           result.IsValid(),
		"structure_valid": result.StructureValid,
		"signature_valid": result.SignatureValid,
		"history_checked": result.HistoryChecked,
		"history_match":   result.HistoryMatch,
		"payload":         result.Payload,
		"details":         result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
