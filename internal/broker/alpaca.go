package broker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"golang.org/x/time/rate"
)

// Alpaca implements Client against the Alpaca trading API. All calls
// share one rate limiter so bursts of portfolio refreshes stay inside
// the API budget.
type Alpaca struct {
	client  *alpaca.Client
	limiter *rate.Limiter
}

func NewAlpaca(apiKey, apiSecret, baseURL string) *Alpaca {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Alpaca{
		client:  alpaca.NewClient(opts),
		limiter: rate.NewLimiter(rate.Limit(3), 1),
	}
}

func (a *Alpaca) Positions(ctx context.Context) ([]Position, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := a.client.GetPositions()
	if err != nil {
		slog.Error("fetch positions failed", "error", err)
		return nil, err
	}

	positions := make([]Position, 0, len(raw))
	for _, pos := range raw {
		qty, _ := pos.Qty.Float64()
		avgEntry, _ := pos.AvgEntryPrice.Float64()
		positions = append(positions, Position{
			Symbol:     pos.Symbol,
			Underlying: UnderlyingOf(pos.Symbol),
			Qty:        qty,
			AvgPrice:   avgEntry,
		})
	}
	slog.Info("positions fetched", "count", len(positions))
	return positions, nil
}

func (a *Alpaca) Transactions(ctx context.Context) ([]Transaction, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := alpaca.GetAccountActivitiesRequest{
		ActivityTypes: []string{"FILL"},
	}
	activities, err := a.client.GetAccountActivities(req)
	if err != nil {
		slog.Error("fetch account activities failed", "error", err)
		return nil, err
	}

	transactions := make([]Transaction, 0, len(activities))
	for _, act := range activities {
		side := parseSide(act.Side)
		if side == "" {
			continue
		}
		qty := act.Qty.Abs()
		qtyF, _ := qty.Float64()
		price, _ := act.Price.Float64()
		cost := act.Price.Mul(qty)
		transactions = append(transactions, Transaction{
			ID:              act.ID,
			Symbol:          act.Symbol,
			Side:            side,
			Qty:             qtyF,
			Price:           price,
			Cost:            cost,
			NetAmount:       act.NetAmount,
			SettlementDate:  act.Date.In(time.UTC),
			TransactionDate: act.TransactionTime,
		})
	}
	slog.Info("transactions fetched", "count", len(transactions))
	return transactions, nil
}

func (a *Alpaca) Sell(ctx context.Context, symbol string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	order, err := a.client.ClosePosition(symbol, alpaca.ClosePositionRequest{})
	if err != nil {
		slog.Error("close position failed", "symbol", symbol, "error", err)
		return err
	}
	slog.Info("close position submitted", "symbol", symbol, "order_id", order.ID, "status", order.Status)
	return nil
}

func parseSide(side string) TradeSide {
	switch strings.ToLower(side) {
	case "buy":
		return Buy
	case "sell", "sell_short":
		return Sell
	default:
		return ""
	}
}
