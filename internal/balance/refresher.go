package balance

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Refresher sums balances across the configured addresses, trying each
// provider in order per address. A round where nothing succeeds (or the sum
// is non-positive) keeps the previous cached value: stale beats absent.
type Refresher struct {
	addresses []string
	providers []Provider
	logger    zerolog.Logger

	cached *decimal.Decimal
}

// NewRefresher builds a refresher over the given addresses and providers.
func NewRefresher(addresses []string, providers []Provider, logger zerolog.Logger) *Refresher {
	return &Refresher{
		addresses: addresses,
		providers: providers,
		logger:    logger.With().Str("component", "balance_refresher").Logger(),
	}
}

// Cached returns the last known good total, nil before the first success.
func (r *Refresher) Cached() *decimal.Decimal {
	return r.cached
}

// Refresh performs one lookup round and returns the resulting total. The
// return value equals Cached() afterwards.
func (r *Refresher) Refresh(ctx context.Context) *decimal.Decimal {
	var sum decimal.Decimal
	anySuccess := false

	for _, addr := range r.addresses {
		value, ok := r.lookup(ctx, addr)
		if !ok {
			continue
		}
		sum = sum.Add(value)
		anySuccess = true
	}

	if !anySuccess || sum.Sign() <= 0 {
		r.logger.Warn().Bool("any_success", anySuccess).Msg("balance refresh failed, keeping cached value")
		return r.cached
	}

	r.cached = &sum
	r.logger.Debug().Str("total", sum.String()).Msg("balance refreshed")
	return r.cached
}

// lookup accepts the first positive result per address. Zero and negative
// values fall through; a later provider may know the real balance.
func (r *Refresher) lookup(ctx context.Context, addr string) (decimal.Decimal, bool) {
	for _, provider := range r.providers {
		value, err := provider.Balance(ctx, addr)
		if err != nil {
			r.logger.Debug().Err(err).Str("provider", provider.Name()).Str("address", addr).Msg("balance lookup failed, trying next provider")
			continue
		}
		if value.Sign() <= 0 {
			continue
		}
		return value, true
	}
	return decimal.Decimal{}, false
}
