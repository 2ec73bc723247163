package series

import (
	"errors"
	"fmt"
	"time"
)

var ErrOutOfOrder = errors.New("bar timestamp not after last bar")

// Bar is a single OHLCV observation. Timestamps are exchange-local and
// bars are immutable once appended to a series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is the append-only bar history for one symbol. Timestamps
// are strictly increasing.
type PriceSeries struct {
	symbol string
	bars   []Bar
}

func New(symbol string) *PriceSeries {
	return &PriceSeries{symbol: symbol}
}

// FromBars builds a series from already-ordered bars, rejecting any
// out-of-order timestamp.
func FromBars(symbol string, bars []Bar) (*PriceSeries, error) {
	ps := New(symbol)
	for _, bar := range bars {
		if err := ps.Append(bar); err != nil {
			return nil, fmt.Errorf("%s: bar at %s: %w", symbol, bar.Time.Format(time.RFC3339), err)
		}
	}
	return ps, nil
}

func (p *PriceSeries) Symbol() string {
	return p.symbol
}

func (p *PriceSeries) Len() int {
	return len(p.bars)
}

func (p *PriceSeries) Append(bar Bar) error {
	if n := len(p.bars); n > 0 && !bar.Time.After(p.bars[n-1].Time) {
		return ErrOutOfOrder
	}
	p.bars = append(p.bars, bar)
	return nil
}

// Bar returns the bar at index i. i must be in [0, Len()).
func (p *PriceSeries) Bar(i int) Bar {
	return p.bars[i]
}

// Close returns the closing price at index i.
func (p *PriceSeries) Close(i int) float64 {
	return p.bars[i].Close
}

func (p *PriceSeries) Last() (Bar, bool) {
	if len(p.bars) == 0 {
		return Bar{}, false
	}
	return p.bars[len(p.bars)-1], true
}

// Window returns the trailing n bars, or fewer if the series is shorter.
// The returned slice is a view; callers must not mutate it.
func (p *PriceSeries) Window(n int) []Bar {
	if n >= len(p.bars) {
		return p.bars
	}
	return p.bars[len(p.bars)-n:]
}
