// Package md provides market data: historical bars and the streaming
// bar subscription feeding the engine.
package md

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"seller/internal/series"
)

var ErrDataUnavailable = errors.New("historical data unavailable")

// BarsRequest identifies one symbol's history. Option contract fields
// are zero for plain equities and feed the cache key.
type BarsRequest struct {
	Symbol     string
	Start      time.Time
	End        time.Time
	Strike     float64
	OptionType string
	Expiry     time.Time
}

type HistoryProvider interface {
	Bars(ctx context.Context, req BarsRequest) (*series.PriceSeries, error)
}

// AlpacaHistory fetches equity bars from the Alpaca data API.
type AlpacaHistory struct {
	client *marketdata.Client
}

func NewAlpacaHistory(apiKey, apiSecret string) *AlpacaHistory {
	return &AlpacaHistory{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

func (h *AlpacaHistory) Bars(ctx context.Context, req BarsRequest) (*series.PriceSeries, error) {
	raw, err := h.client.GetBars(req.Symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.NewTimeFrame(5, marketdata.Min),
		Start:     req.Start,
		End:       req.End,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", req.Symbol, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", req.Symbol, ErrDataUnavailable)
	}

	bars := make([]series.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, series.Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	ps, err := series.FromBars(req.Symbol, bars)
	if err != nil {
		return nil, err
	}
	slog.Info("historical bars fetched", "symbol", req.Symbol, "bars", ps.Len())
	return ps, nil
}
