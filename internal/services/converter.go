package services

import (
	"context"
	"errors"
	"fmt"

	"finledger/internal/storage"
)

// Converter normalizes amounts into a user's base currency using the
// user's own fixed rates.
type Converter struct {
	rates RateReader
}

func NewConverter(rates RateReader) *Converter {
	return &Converter{rates: rates}
}

// ToBase converts amount from currency into the user's base currency.
// An empty currency, or the base currency itself, converts 1:1. A
// currency with no stored rate also converts 1:1: rates are optional
// convenience data, so a missing one is not an error.
func (c *Converter) ToBase(ctx context.Context, userID int64, amount float64, currency string) (float64, error) {
	if currency == "" {
		return amount, nil
	}

	settings, err := c.rates.GetSettings(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get settings: %w", err)
	}
	if currency == settings.BaseCurrency {
		return amount, nil
	}

	rate, err := c.rates.GetRate(ctx, userID, currency)
	if errors.Is(err, storage.ErrNotFound) {
		return amount, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get rate for %s: %w", currency, err)
	}
	return amount * rate.RateToBase, nil
}
