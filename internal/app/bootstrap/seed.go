package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Seed is the startup fixture for a memory-backed API: assets to place in
// custody and balances to credit before the first request.
type Seed struct {
	Assets   []SeedAsset   `json:"assets"`
	Balances []SeedBalance `json:"balances"`
}

type SeedAsset struct {
	Asset string `json:"asset"`
	Owner string `json:"owner"`
}

type SeedBalance struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Amount   uint64 `json:"amount"`
}

func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return seed, nil
}

// ApplySeed stops at the first entry the provisioning backend rejects.
func ApplySeed(ctx context.Context, provisioning ports.Provisioning, seed Seed, logger *slog.Logger) error {
	for i, item := range seed.Assets {
		if err := provisioning.RegisterAsset(ctx, entities.AssetHandle(item.Asset), entities.AccountID(item.Owner)); err != nil {
			return fmt.Errorf("seed asset %d (%q): %w", i, item.Asset, err)
		}
	}
	for i, item := range seed.Balances {
		err := provisioning.Credit(ctx, entities.AccountID(item.Account), entities.CurrencyTag(item.Currency), entities.Amount(item.Amount))
		if err != nil {
			return fmt.Errorf("seed balance %d (%q): %w", i, item.Account, err)
		}
	}
	logger.Info("seed applied",
		"event", "bootstrap_seed_applied",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"assets", len(seed.Assets),
		"balances", len(seed.Balances),
	)
	return nil
}
