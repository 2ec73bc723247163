package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"seller/internal/broker"
	"seller/internal/cache"
	"seller/internal/config"
	"seller/internal/engine"
	"seller/internal/md"
	"seller/internal/metrics"
	"seller/internal/reconcile"
	"seller/internal/series"
	"seller/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	runID := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
	decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath, runID)
	if err != nil {
		log.Fatalf("decision logger error: %v", err)
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			log.Printf("failed to close decision logger: %v", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr)
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
	}

	brokerClient := broker.NewAlpaca(cfg.APIKey, cfg.APISecret, cfg.BaseURL)

	var cacheStore md.CacheStore
	if cfg.CacheDSN != "" {
		store, err := cache.NewSQLiteStore(cfg.CacheDSN)
		if err != nil {
			log.Printf("bar cache disabled: %v", err)
		} else {
			cacheStore = store
			defer store.Close()
		}
	}
	history := md.NewCachedHistory(md.NewAlpacaHistory(cfg.APIKey, cfg.APISecret), cacheStore)

	eng := engine.New(brokerClient, engine.Options{
		Generators:  []strategy.Generator{strategy.NewMovingAverages(cfg.Windows...)},
		Evaluators:  []strategy.Evaluator{strategy.NewEMAConditions()},
		MaxNotional: cfg.MaxNotional,
		Cooldown:    cfg.Cooldown,
		KillSwitch:  cfg.KillSwitch,
		Decisions:   decisions,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Printf("shutdown signal received")
		cancel()
	}()

	positions, err := brokerClient.Positions(ctx)
	if err != nil {
		log.Fatalf("fetch positions: %v", err)
	}
	transactions, err := brokerClient.Transactions(ctx)
	if err != nil {
		log.Printf("transactions unavailable, positions carry no cost basis: %v", err)
	}
	positions = reconcile.Positions(positions, transactions)
	printPositions(positions)

	underlyings := seedPortfolio(ctx, eng, history, cacheStore, positions, cfg.HistoryDays)
	if len(underlyings) == 0 {
		log.Printf("no positions to track, exiting")
		return
	}

	log.Printf("starting seller run_id=%s feed=%s symbols=%v", runID, cfg.Feed, underlyings)
	if err := md.StartStream(ctx, cfg.APIKey, cfg.APISecret, cfg.Feed, underlyings, func(tick md.Tick) {
		if _, err := eng.OnTick(ctx, tick, true); err != nil {
			log.Printf("cycle error: %v", err)
		}
	}); err != nil && err != context.Canceled {
		log.Printf("market data stream stopped: %v", err)
	}

	log.Printf("seller shutdown complete")
}

// seedPortfolio tracks every position with its history: underlyings get
// provider bars (through the cache), options get cached contract bars
// when present and start empty otherwise. Returns the equity symbols to
// stream, sorted.
func seedPortfolio(ctx context.Context, eng *engine.Engine, history md.HistoryProvider, cacheStore md.CacheStore, positions []broker.Position, historyDays int) []string {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -historyDays)
	tracked := map[string]bool{}

	for i := range positions {
		pos := positions[i]

		equity := pos.Underlying
		if !tracked[equity] {
			ps, err := history.Bars(ctx, md.BarsRequest{Symbol: equity, Start: start, End: now})
			if err != nil {
				log.Printf("no history for %s, starting empty: %v", equity, err)
				ps = nil
			}
			eng.Track(equity, ps, &positions[i])
			tracked[equity] = true
		} else if err := eng.SetPosition(equity, &positions[i]); err != nil {
			log.Printf("relink %s: %v", equity, err)
		}

		if !pos.IsOption() {
			continue
		}
		eng.Track(pos.Symbol, optionSeries(ctx, cacheStore, pos), &positions[i])
	}

	symbols := make([]string, 0, len(tracked))
	for symbol := range tracked {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func optionSeries(ctx context.Context, cacheStore md.CacheStore, pos broker.Position) *series.PriceSeries {
	if cacheStore == nil {
		return nil
	}
	key := md.CacheKey{
		Symbol:     pos.Underlying,
		Strike:     pos.Strike,
		OptionType: strings.ToLower(pos.PutCall),
	}
	if pos.Basis != nil {
		key.Expiry = pos.Basis.ExpirationDate
	}
	cached, err := cacheStore.Get(ctx, key)
	if err != nil || cached == nil {
		return nil
	}
	ps := series.New(pos.Symbol)
	for i := 0; i < cached.Len(); i++ {
		if err := ps.Append(cached.Bar(i)); err != nil {
			return nil
		}
	}
	return ps
}

func printPositions(positions []broker.Position) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Underlying", "Qty", "Avg Price", "Strike", "Net Amount", "Settled"})
	for _, pos := range positions {
		netAmount, settled := "", ""
		if pos.Basis != nil {
			netAmount = pos.Basis.NetAmount.StringFixed(2)
			settled = pos.Basis.SettlementDate.Format("2006-01-02")
		}
		strike := ""
		if pos.Strike != 0 {
			strike = fmt.Sprintf("%.2f", pos.Strike)
		}
		table.Append([]string{
			pos.Symbol,
			pos.Underlying,
			fmt.Sprintf("%.0f", pos.Qty),
			fmt.Sprintf("%.2f", pos.AvgPrice),
			strike,
			netAmount,
			settled,
		})
	}
	table.Render()
}
