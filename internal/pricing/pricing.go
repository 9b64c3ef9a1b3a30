// Package pricing resolves the batch (lote) configuration stored as flat
// key/value rows into typed snapshots. All key parsing lives here; callers
// only ever see model.BatchPricing.
package pricing

import (
	"context"
	"fmt"
	"strconv"

	"eventomw/internal/model"
)

// Keys follow the layout of the system_config table.
const (
	KeyActiveBatch = "active_batch"

	keyBasePriceFmt  = "batch_%d_base_price"
	keyLunchPriceFmt = "batch_%d_lunch_price"
)

// BatchCount is the fixed number of configured batches.
const BatchCount = 3

// Store is the narrow read surface the resolver needs.
type Store interface {
	ConfigValue(ctx context.Context, key string) (string, error)
}

// MissingKeyError reports which config key made a snapshot unusable. Zero and
// unset are treated the same: the event is never free, so a zero price means
// the batch was not set up.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "pricing config " + e.Key + " is missing or zero"
}

func BasePriceKey(batch int) string {
	return fmt.Sprintf(keyBasePriceFmt, batch)
}

func LunchPriceKey(batch int) string {
	return fmt.Sprintf(keyLunchPriceFmt, batch)
}

// ResolveActive reads the active batch pointer and that batch's prices in one
// pass, returning the snapshot order creation computes against.
func ResolveActive(ctx context.Context, store Store) (model.BatchPricing, error) {
	raw, err := store.ConfigValue(ctx, KeyActiveBatch)
	if err != nil {
		return model.BatchPricing{}, &MissingKeyError{Key: KeyActiveBatch}
	}
	batch, err := strconv.Atoi(raw)
	if err != nil || batch < 1 {
		return model.BatchPricing{}, fmt.Errorf("invalid %s value %q", KeyActiveBatch, raw)
	}
	return ResolveBatch(ctx, store, batch)
}

func ResolveBatch(ctx context.Context, store Store, batch int) (model.BatchPricing, error) {
	base, err := price(ctx, store, BasePriceKey(batch))
	if err != nil {
		return model.BatchPricing{}, err
	}
	lunch, err := price(ctx, store, LunchPriceKey(batch))
	if err != nil {
		return model.BatchPricing{}, err
	}
	return model.BatchPricing{Number: batch, BasePrice: base, LunchPrice: lunch}, nil
}

func price(ctx context.Context, store Store, key string) (float64, error) {
	raw, err := store.ConfigValue(ctx, key)
	if err != nil {
		return 0, &MissingKeyError{Key: key}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price in %s: %q", key, raw)
	}
	if v <= 0 {
		return 0, &MissingKeyError{Key: key}
	}
	return v, nil
}
