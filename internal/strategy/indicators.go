package strategy

import (
	"fmt"

	"seller/internal/series"
)

// DefaultWindows are the moving-average lookbacks computed per bar.
var DefaultWindows = []int{5, 10, 50, 100, 250}

// NewMovingAverages returns a generator producing SMA_w and EMA_w
// series for each window. A window longer than the available history is
// skipped on its own; it never short-circuits the remaining windows.
func NewMovingAverages(windows ...int) Generator {
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	return func(ps *series.PriceSeries, _ Signals) Signals {
		updates := Signals{}
		for _, w := range windows {
			if ps.Len() < w {
				continue
			}
			updates[fmt.Sprintf("SMA_%d", w)] = sma(ps, w)
		}
		for _, w := range windows {
			if ps.Len() < w {
				continue
			}
			updates[fmt.Sprintf("EMA_%d", w)] = ema(ps, w)
		}
		return updates
	}
}

// sma is the arithmetic mean of the trailing w closes, defined from bar
// index w-1 onward.
func sma(ps *series.PriceSeries, w int) Signal {
	n := ps.Len()
	values := make([]float64, 0, n-w+1)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += ps.Close(i)
		if i >= w {
			sum -= ps.Close(i - w)
		}
		if i >= w-1 {
			values = append(values, sum/float64(w))
		}
	}
	return Signal{Offset: w - 1, Values: values}
}

// ema is the recursive smoothing with alpha = 2/(w+1), seeded by the
// first close with no bias correction, so it is defined for every bar.
func ema(ps *series.PriceSeries, w int) Signal {
	n := ps.Len()
	alpha := 2.0 / float64(w+1)
	values := make([]float64, n)
	values[0] = ps.Close(0)
	for i := 1; i < n; i++ {
		values[i] = alpha*ps.Close(i) + (1-alpha)*values[i-1]
	}
	return Signal{Offset: 0, Values: values}
}
