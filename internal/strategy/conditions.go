package strategy

import "seller/internal/series"

// Condition names set by the EMA evaluator.
const (
	CondEMA200CrossOver    = "ema_200_cross_over"
	CondEMA50Vicinity      = "ema_50_vicinity"
	CondEMA50CrossesEMA200 = "ema_50_crosses_ema_200"
)

// NewEMAConditions returns the built-in evaluator. Each trigger needs
// its referenced signals; when one is missing the trigger is skipped
// without error.
//
//   - ema_200_cross_over: close was below EMA_200 five bars back and is
//     above it at the latest bar.
//   - ema_50_vicinity: EMA_50/close at the latest bar within [0.98, 1.02].
//   - ema_50_crosses_ema_200: EMA_50 moved from below EMA_200 at the
//     previous bar to above it at the latest bar.
func NewEMAConditions() Evaluator {
	return func(ps *series.PriceSeries, signals Signals, conditions Conditions) {
		n := ps.Len()
		if n == 0 {
			return
		}
		last := n - 1

		if n >= 5 {
			ema200 := signals["EMA_200"]
			then, okThen := ema200.At(n - 5)
			now, okNow := ema200.At(last)
			if okThen && okNow && then > ps.Close(n-5) && now < ps.Close(last) {
				conditions[CondEMA200CrossOver] = true
			}
		}

		if ema50, ok := signals["EMA_50"]; ok {
			if v, ok := ema50.At(last); ok && ps.Close(last) != 0 {
				ratio := v / ps.Close(last)
				if ratio >= 0.98 && ratio <= 1.02 {
					conditions[CondEMA50Vicinity] = true
				}
			}
		}

		if n >= 2 {
			ema50 := signals["EMA_50"]
			ema200 := signals["EMA_200"]
			fastNow, ok1 := ema50.At(last)
			slowNow, ok2 := ema200.At(last)
			fastPrev, ok3 := ema50.At(n - 2)
			slowPrev, ok4 := ema200.At(n - 2)
			if ok1 && ok2 && ok3 && ok4 && fastNow > slowNow && fastPrev < slowPrev {
				conditions[CondEMA50CrossesEMA200] = true
			}
		}
	}
}
