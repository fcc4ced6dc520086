// Package storage holds what the persistence backends share: the JSON
// catalogue a sale is seeded from.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cloudx-io/auctionconsole/core"
)

// Seed is the catalogue of one sale.
type Seed struct {
	Auction  core.AuctionMeta `json:"auction"`
	Lots     []core.Lot       `json:"lots"`
	Dealers  []core.Dealer    `json:"dealers"`
	Activity []Activity       `json:"activity,omitempty"`
}

// Activity is one audience list for one lot.
type Activity struct {
	LotNumber int               `json:"lotNumber"`
	Kind      core.ActivityKind `json:"kind"`
	Users     []core.ViewerInfo `json:"users"`
}

// ReadSeed decodes a JSON catalogue.
func ReadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("failed to decode seed: %w", err)
	}
	return seed, nil
}

// LoadSeedFile reads a JSON catalogue from path.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return ReadSeed(f)
}
