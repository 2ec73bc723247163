// Package broker defines the trading-account types the engine consumes
// and the Alpaca-backed client that produces them.
package broker

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	Buy  TradeSide = "BUY"
	Sell TradeSide = "SELL"
)

// IsOption reports whether a symbol names an option contract. Option
// symbols carry an underscore separator (e.g. AAPL_011521C100); plain
// equity symbols never do.
func IsOption(symbol string) bool {
	return strings.Contains(symbol, "_")
}

// UnderlyingOf returns the equity symbol an option contract references,
// or the symbol itself for equities.
func UnderlyingOf(symbol string) string {
	if i := strings.Index(symbol, "_"); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// CostBasis is the transaction metadata attached to a position by lot
// matching. Dates and id come from the most recent matched lot.
type CostBasis struct {
	SettlementDate  time.Time
	TransactionDate time.Time
	TransactionID   string
	NetAmount       decimal.Decimal
	ExpirationDate  time.Time
	MatchedQty      float64
}

// Position is an open holding. Basis stays nil until reconciliation
// matches the position to its funding transactions.
type Position struct {
	Symbol      string
	Underlying  string
	Qty         float64
	AvgPrice    float64
	PutCall     string
	Description string
	Strike      float64
	Basis       *CostBasis
}

func (p Position) IsOption() bool {
	return IsOption(p.Symbol)
}

// Multiplier is the contract multiplier applied when converting average
// price to total cost: 100 for options, 1 for equities.
func (p Position) Multiplier() float64 {
	if p.IsOption() {
		return 100
	}
	return 1
}

// Transaction is one account trade activity.
type Transaction struct {
	ID              string
	Symbol          string
	Side            TradeSide
	Qty             float64
	Price           float64
	Cost            decimal.Decimal
	NetAmount       decimal.Decimal
	SettlementDate  time.Time
	TransactionDate time.Time
	ExpirationDate  time.Time
}

// Client is the broker surface the engine depends on. Authentication
// and connection lifecycle belong to implementations.
type Client interface {
	Positions(ctx context.Context) ([]Position, error)
	Transactions(ctx context.Context) ([]Transaction, error)
	Sell(ctx context.Context, symbol string) error
}
