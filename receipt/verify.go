package receipt

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionconsole/core"
)

// ValidationResult collects the outcome of each receipt check.
type ValidationResult struct {
	StructureValid    bool
	SignatureValid    bool
	HistoryChecked    bool
	HistoryMatch      bool
	Payload           *Payload
	ValidationDetails []string
}

// IsValid returns true if every check that was performed passed.
func (r *ValidationResult) IsValid() bool {
	return r.StructureValid && r.SignatureValid && (!r.HistoryChecked || r.HistoryMatch)
}

func (r *ValidationResult) detail(format string, args ...any) {
	r.ValidationDetails = append(r.ValidationDetails, fmt.Sprintf(format, args...))
}

// ExtractPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
// Returns the payload bytes (element 2)
func ExtractPayload(coseBytes []byte) ([]byte, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}

// Verify checks the ES256 signature of a receipt against publicKey and
// decodes its payload. It returns an error only when coseBytes is not a
// COSE_Sign1 message at all; every other failure is reported in the result.
func Verify(coseBytes []byte, publicKey *ecdsa.PublicKey) (*ValidationResult, error) {
	var msg cose.UntaggedSign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	result := &ValidationResult{}

	payload, err := ParsePayload(msg.Payload)
	if err != nil {
		result.detail("Payload invalid: %v", err)
	} else {
		result.StructureValid = true
		result.Payload = &payload
		result.detail("Payload decoded for lot %d (%s)", payload.LotNumber, payload.Status)
	}

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil || alg != cose.AlgorithmES256 {
		result.detail("Unsupported or missing algorithm header")
		return result, nil
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	if err := (*cose.Sign1Message)(&msg).Verify(nil, verifier); err != nil {
		result.detail("Signature verification failed: %v", err)
		return result, nil
	}
	result.SignatureValid = true
	result.detail("Signature valid (ES256)")

	return result, nil
}

// CheckBidHistory recomputes the bid history hash from bids and compares it
// with the one the receipt was signed over.
func (r *ValidationResult) CheckBidHistory(bids []core.Bid) {
	r.HistoryChecked = true
	if r.Payload == nil {
		r.detail("Bid history not checked: payload unavailable")
		return
	}

	got := core.ComputeBidHistoryHash(r.Payload.LotNumber, bids)
	if got != r.Payload.BidHistoryHash || len(bids) != r.Payload.BidCount {
		r.HistoryMatch = false
		r.detail("Bid history mismatch: %d bids hash to %s, receipt has %d bids hashing to %s",
			len(bids), got, r.Payload.BidCount, r.Payload.BidHistoryHash)
		return
	}
	r.HistoryMatch = true
	r.detail("Bid history matches receipt (%d bids)", len(bids))
}
