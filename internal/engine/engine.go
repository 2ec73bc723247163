// Package engine runs the processing cycle: ingest a tick, derive
// signals, evaluate conditions, dispatch sell orders, and refresh the
// portfolio when anything sold.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"seller/internal/broker"
	"seller/internal/md"
	"seller/internal/metrics"
	"seller/internal/reconcile"
	"seller/internal/risk"
	"seller/internal/series"
	"seller/internal/state"
	"seller/internal/strategy"
)

// Options configures an Engine. Zero-valued fields fall back to the
// built-in pipelines and no dispatch limits.
type Options struct {
	Generators  []strategy.Generator
	Evaluators  []strategy.Evaluator
	MaxNotional float64
	Cooldown    time.Duration
	KillSwitch  bool
	Decisions   *DecisionLogger
}

// Engine owns the symbol store and processes ticks strictly one at a
// time: a cycle runs to completion before the next tick is accepted.
// All mutation happens on the caller's goroutine.
type Engine struct {
	store       *state.Store
	broker      broker.Client
	generators  []strategy.Generator
	evaluators  []strategy.Evaluator
	gate        risk.Gate
	maxNotional float64
	cooldown    time.Duration
	killSwitch  bool
	decisions   *DecisionLogger
	lastTrade   time.Time
}

func New(brokerClient broker.Client, opts Options) *Engine {
	generators := opts.Generators
	if generators == nil {
		generators = []strategy.Generator{strategy.NewMovingAverages()}
	}
	evaluators := opts.Evaluators
	if evaluators == nil {
		evaluators = []strategy.Evaluator{strategy.NewEMAConditions()}
	}
	return &Engine{
		store:       state.NewStore(),
		broker:      brokerClient,
		generators:  generators,
		evaluators:  evaluators,
		maxNotional: opts.MaxNotional,
		cooldown:    opts.Cooldown,
		killSwitch:  opts.KillSwitch,
		decisions:   opts.Decisions,
	}
}

// Track seeds (or replaces) a symbol's state before streaming starts.
func (e *Engine) Track(symbol string, ps *series.PriceSeries, pos *broker.Position) {
	e.store.Put(symbol, ps, pos)
}

func (e *Engine) IsTracked(symbol string) bool {
	return e.store.Has(symbol)
}

// SetPosition relinks an already-tracked symbol to a position without
// touching its series or signals.
func (e *Engine) SetPosition(symbol string, pos *broker.Position) error {
	return e.store.SetPosition(symbol, pos)
}

// Tracked returns all tracked symbols in sorted order.
func (e *Engine) Tracked() []string {
	return e.store.Symbols()
}

// OnTick processes one cycle. With update false the bar is appended
// and nothing else happens (used to seed historical ticks). Otherwise
// signals and conditions are recomputed, triggered sells dispatched,
// and the portfolio refreshed if any order executed. Returns the sell
// instructions executed this cycle.
func (e *Engine) OnTick(ctx context.Context, tick md.Tick, update bool) ([]Order, error) {
	if !e.store.Has(tick.Symbol) {
		slog.Debug("tick for untracked symbol", "symbol", tick.Symbol)
		return nil, nil
	}
	if err := e.store.AppendTick(tick.Symbol, tick.Bar); err != nil {
		return nil, err
	}
	metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()

	if !update {
		return nil, nil
	}

	e.generateSignals()
	e.buildConditions()
	orders, err := e.sendOrders(ctx)
	if len(orders) > 0 {
		if refreshErr := e.RefreshPortfolio(ctx); refreshErr != nil {
			err = errors.Join(err, refreshErr)
		}
	}
	metrics.CyclesTotal.Inc()
	return orders, err
}

// generateSignals recomputes every equity's signal map from scratch.
// Option symbols never run pipelines; they borrow the underlying's
// conditions at dispatch time.
func (e *Engine) generateSignals() {
	for _, symbol := range e.store.Symbols() {
		if broker.IsOption(symbol) {
			continue
		}
		st, ok := e.store.Get(symbol)
		if !ok {
			continue
		}
		st.Signals = strategy.RunGenerators(e.generators, st.Series)
	}
}

// buildConditions rebuilds every equity's condition set for the current
// bar. Stale triggers never survive a cycle.
func (e *Engine) buildConditions() {
	for _, symbol := range e.store.Symbols() {
		if broker.IsOption(symbol) {
			continue
		}
		st, ok := e.store.Get(symbol)
		if !ok {
			continue
		}
		st.Conditions = strategy.RunEvaluators(e.evaluators, st.Series, st.Signals)
	}
}

// RefreshPortfolio re-fetches positions, reconciles them against the
// transaction history, and folds them into the store: already-tracked
// symbols get the new position link, unseen symbols are added together
// with their underlying.
func (e *Engine) RefreshPortfolio(ctx context.Context) error {
	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return fmt.Errorf("refresh portfolio: %w", err)
	}
	txns, err := e.broker.Transactions(ctx)
	if err != nil {
		slog.Warn("transaction fetch failed, positions keep prior basis", "error", err)
		txns = nil
	}

	for _, pos := range reconcile.Positions(positions, txns) {
		pos := pos
		if e.store.Has(pos.Symbol) {
			_ = e.store.SetPosition(pos.Symbol, &pos)
		} else {
			slog.Info("tracking new position", "symbol", pos.Symbol, "underlying", pos.Underlying)
			e.store.Put(pos.Symbol, nil, &pos)
		}
		if !pos.IsOption() {
			continue
		}
		if e.store.Has(pos.Underlying) {
			_ = e.store.SetPosition(pos.Underlying, &pos)
		} else {
			e.store.Put(pos.Underlying, nil, &pos)
		}
	}
	return nil
}
