package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"seller/internal/broker"
	"seller/internal/metrics"
	"seller/internal/risk"
)

var ErrOrderRejected = errors.New("order rejected")

// Order is one sell instruction: the option symbol to close and the
// condition names that triggered it.
type Order struct {
	Symbol     string
	Conditions []string
}

// sendOrders queues a sell for every symbol whose condition set is
// non-empty and whose linked option is still tracked, then executes
// the queue. A failed sell keeps that symbol's state and is reported;
// it never aborts the rest of the queue.
func (e *Engine) sendOrders(ctx context.Context) ([]Order, error) {
	var queued []Order
	for _, symbol := range e.store.Symbols() {
		st, ok := e.store.Get(symbol)
		if !ok || st.Position == nil {
			continue
		}
		conditions := st.Conditions.Names()
		if len(conditions) == 0 {
			continue
		}
		optionSymbol := st.Position.Symbol
		if !e.store.Has(optionSymbol) {
			continue
		}
		queued = append(queued, Order{Symbol: optionSymbol, Conditions: conditions})
	}

	now := time.Now().UTC()
	var executed []Order
	var errs []error
	for _, order := range queued {
		st, ok := e.store.Get(order.Symbol)
		if !ok || st.Position == nil {
			continue
		}
		pos := st.Position

		price := 0.0
		if last, ok := st.Series.Last(); ok {
			price = last.Close
		}
		gateCtx := risk.Context{
			Now:           now,
			Price:         price,
			Qty:           math.Abs(pos.Qty),
			Multiplier:    pos.Multiplier(),
			LastTradeTime: e.lastTrade,
			MaxNotional:   e.maxNotional,
			Cooldown:      e.cooldown,
			KillSwitch:    e.killSwitch,
		}
		if err := e.gate.Evaluate(order.Symbol, gateCtx); err != nil {
			metrics.OrderFailuresTotal.WithLabelValues(order.Symbol).Inc()
			e.logDecision(order, pos.Underlying, "gate_rejected", err.Error())
			errs = append(errs, fmt.Errorf("sell %s: %w", order.Symbol, errors.Join(ErrOrderRejected, err)))
			continue
		}

		if err := e.broker.Sell(ctx, order.Symbol); err != nil {
			metrics.OrderFailuresTotal.WithLabelValues(order.Symbol).Inc()
			e.logDecision(order, pos.Underlying, "order_failed", err.Error())
			errs = append(errs, fmt.Errorf("sell %s: %w", order.Symbol, errors.Join(ErrOrderRejected, err)))
			continue
		}

		slog.Info("sell dispatched", "symbol", order.Symbol, "underlying", pos.Underlying, "conditions", order.Conditions)
		e.lastTrade = now
		e.store.Remove(order.Symbol)
		if !e.optionsReference(pos.Underlying) {
			e.store.Remove(pos.Underlying)
		}
		e.logDecision(order, pos.Underlying, "order_submitted", "")
		metrics.OrdersTotal.WithLabelValues(order.Symbol).Inc()
		executed = append(executed, order)
	}
	return executed, errors.Join(errs...)
}

// optionsReference reports whether any tracked option's position still
// names the underlying. Comparison is on the underlying-symbol field,
// never on object identity.
func (e *Engine) optionsReference(underlying string) bool {
	for _, symbol := range e.store.Symbols() {
		if !broker.IsOption(symbol) {
			continue
		}
		st, ok := e.store.Get(symbol)
		if !ok || st.Position == nil {
			continue
		}
		if st.Position.Underlying == underlying {
			return true
		}
	}
	return false
}

func (e *Engine) logDecision(order Order, underlying, result, reason string) {
	if e.decisions == nil {
		return
	}
	e.decisions.Append(Decision{
		Timestamp:  time.Now().UTC(),
		Symbol:     order.Symbol,
		Underlying: underlying,
		Conditions: order.Conditions,
		Result:     result,
		Reason:     reason,
	})
}
