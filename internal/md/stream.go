package md

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"

	"seller/internal/series"
)

// Tick is one streamed bar for one symbol.
type Tick struct {
	Symbol string
	Bar    series.Bar
}

type TickHandler func(Tick)

// StartStream subscribes to bar updates for the given symbols and
// invokes the handler for every bar until the context is cancelled.
// The handler runs on the stream goroutine, so ticks arrive strictly
// one at a time.
func StartStream(ctx context.Context, apiKey, apiSecret, feed string, symbols []string, handler TickHandler) error {
	client := stream.NewStocksClient(
		parseFeed(feed),
		stream.WithCredentials(apiKey, apiSecret),
	)

	// Connect must be called before subscribing in this SDK version
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}

	if err := client.SubscribeToBars(func(bar stream.Bar) {
		handler(Tick{
			Symbol: bar.Symbol,
			Bar: series.Bar{
				Time:   bar.Timestamp,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: float64(bar.Volume),
			},
		})
	}, symbols...); err != nil {
		return fmt.Errorf("subscribe to bars: %w", err)
	}

	slog.Info("subscribed to bars", "symbols", symbols, "feed", feed)

	<-ctx.Done()
	return ctx.Err()
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
