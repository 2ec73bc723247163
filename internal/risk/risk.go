// Package risk gates sell dispatches before they reach the broker.
package risk

import (
	"fmt"
	"log/slog"
	"time"
)

// Context carries everything a gate decision needs for one sell.
type Context struct {
	Now           time.Time
	Price         float64
	Qty           float64
	Multiplier    float64
	LastTradeTime time.Time
	MaxNotional   float64
	Cooldown      time.Duration
	KillSwitch    bool
}

type Gate struct{}

// Evaluate returns nil when the sell may proceed. A non-nil error names
// the rejecting rule; the caller keeps the position tracked.
func (g Gate) Evaluate(symbol string, ctx Context) error {
	notional := ctx.Price * ctx.Qty * ctx.Multiplier

	if ctx.KillSwitch {
		slog.Info("risk rejected", "symbol", symbol, "reason", "kill_switch_enabled")
		return fmt.Errorf("kill_switch_enabled")
	}
	if ctx.Cooldown > 0 && !ctx.LastTradeTime.IsZero() && ctx.Now.Sub(ctx.LastTradeTime) < ctx.Cooldown {
		remaining := ctx.Cooldown - ctx.Now.Sub(ctx.LastTradeTime)
		slog.Info("risk rejected", "symbol", symbol, "reason", "cooldown_active", "remaining", remaining)
		return fmt.Errorf("cooldown_active")
	}
	if ctx.MaxNotional > 0 && notional > ctx.MaxNotional {
		slog.Info("risk rejected", "symbol", symbol, "reason", "max_notional_exceeded", "notional", notional, "max", ctx.MaxNotional)
		return fmt.Errorf("max_notional_exceeded")
	}

	slog.Info("risk approved", "symbol", symbol, "qty", ctx.Qty, "notional", notional)
	return nil
}
