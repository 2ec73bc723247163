// Package reconcile matches open positions to the historical buy
// transactions that funded them, producing cost-basis metadata.
package reconcile

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"seller/internal/broker"
)

// Match scans the position's BUY transactions most-recent-first and
// accumulates lots until the position quantity is covered or the
// transactions run out. The final lot is matched only up to the
// remaining quantity, so the matched total never exceeds the position.
// Returns nil when no transaction matches; that is a valid outcome,
// not an error.
func Match(pos broker.Position, txns []broker.Transaction) *broker.CostBasis {
	buys := make([]broker.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Symbol == pos.Symbol && txn.Side == broker.Buy {
			buys = append(buys, txn)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].TransactionDate.After(buys[j].TransactionDate)
	})

	remaining := pos.Qty
	if remaining < 0 {
		remaining = -remaining
	}
	cost := decimal.NewFromFloat(remaining * pos.AvgPrice * pos.Multiplier())

	var basis *broker.CostBasis
	for _, txn := range buys {
		if remaining <= 0 || !cost.IsPositive() {
			break
		}
		matched := txn.Qty
		if matched > remaining {
			matched = remaining
		}
		remaining -= matched
		cost = cost.Sub(txn.Cost)

		if basis == nil {
			basis = &broker.CostBasis{
				SettlementDate:  txn.SettlementDate,
				TransactionDate: txn.TransactionDate,
				TransactionID:   txn.ID,
				NetAmount:       txn.NetAmount,
				ExpirationDate:  txn.ExpirationDate,
				MatchedQty:      matched,
			}
			continue
		}
		basis.NetAmount = basis.NetAmount.Add(txn.NetAmount)
		basis.MatchedQty += matched
	}
	return basis
}

// Positions reconciles every position in place: cost basis from lot
// matching, strike parsed from the instrument description for option
// symbols. Unmatched positions keep a nil basis and processing
// continues.
func Positions(positions []broker.Position, txns []broker.Transaction) []broker.Position {
	out := make([]broker.Position, len(positions))
	for i, pos := range positions {
		pos.Basis = Match(pos, txns)
		if pos.Basis == nil {
			slog.Warn("no transaction matched position", "symbol", pos.Symbol)
		}
		if pos.IsOption() {
			if strike, ok := ParseStrike(pos.Description); ok {
				pos.Strike = strike
			}
		}
		out[i] = pos
	}
	return out
}

// ParseStrike extracts the strike price from a structured instrument
// description such as "AAPL Jan 15 2021 100.0 Call": the second-to-last
// space-separated token.
func ParseStrike(description string) (float64, bool) {
	fields := strings.Fields(description)
	if len(fields) < 2 {
		return 0, false
	}
	strike, err := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return 0, false
	}
	return strike, true
}
