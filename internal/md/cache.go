package md

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"seller/internal/series"
)

// CacheKey is the structured identity of a cached bar series: the plain
// symbol for equities, symbol plus contract parameters for options.
type CacheKey struct {
	Symbol     string
	Strike     float64
	OptionType string
	Expiry     time.Time
}

// String renders the key as underlying_strike_type_expiry for options
// and the bare symbol for equities.
func (k CacheKey) String() string {
	if k.OptionType == "" {
		return k.Symbol
	}
	return fmt.Sprintf("%s_%s_%s_%s",
		k.Symbol,
		strconv.FormatFloat(k.Strike, 'f', -1, 64),
		k.OptionType,
		k.Expiry.Format("2006-01-02"))
}

// CacheStore persists bar series between runs. A miss returns a nil
// series and no error.
type CacheStore interface {
	Get(ctx context.Context, key CacheKey) (*series.PriceSeries, error)
	Put(ctx context.Context, key CacheKey, ps *series.PriceSeries) error
}

// CachedHistory is a read-through cache over a HistoryProvider. Cache
// failures degrade to a direct fetch; they never fail the request.
type CachedHistory struct {
	provider HistoryProvider
	cache    CacheStore
}

func NewCachedHistory(provider HistoryProvider, cache CacheStore) *CachedHistory {
	return &CachedHistory{provider: provider, cache: cache}
}

func (c *CachedHistory) Bars(ctx context.Context, req BarsRequest) (*series.PriceSeries, error) {
	key := CacheKey{
		Symbol:     req.Symbol,
		Strike:     req.Strike,
		OptionType: req.OptionType,
		Expiry:     req.Expiry,
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("bar cache read failed", "key", key.String(), "error", err)
		} else if cached != nil && cached.Len() > 0 {
			slog.Debug("bar cache hit", "key", key.String(), "bars", cached.Len())
			return cached, nil
		}
	}

	ps, err := c.provider.Bars(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, key, ps); err != nil {
			slog.Warn("bar cache write failed", "key", key.String(), "error", err)
		}
	}
	return ps, nil
}
