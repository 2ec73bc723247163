package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seller/internal/broker"
)

func buyTxn(id string, symbol string, qty, price float64, daysAgo int) broker.Transaction {
	when := time.Date(2021, 1, 15, 10, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	return broker.Transaction{
		ID:              id,
		Symbol:          symbol,
		Side:            broker.Buy,
		Qty:             qty,
		Price:           price,
		Cost:            decimal.NewFromFloat(qty * price * 100),
		NetAmount:       decimal.NewFromFloat(-(qty*price*100 + 0.65)),
		SettlementDate:  when.AddDate(0, 0, 1),
		TransactionDate: when,
		ExpirationDate:  time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestMatchEmptyTransactionList(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 2, AvgPrice: 1.5}
	assert.Nil(t, Match(pos, nil))
}

func TestMatchMostRecentFirst(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 1, AvgPrice: 2}
	txns := []broker.Transaction{
		buyTxn("old", "AAPL_011521C100", 1, 1.8, 10),
		buyTxn("recent", "AAPL_011521C100", 1, 2.0, 2),
	}

	basis := Match(pos, txns)
	require.NotNil(t, basis)
	assert.Equal(t, "recent", basis.TransactionID)
	assert.Equal(t, 1.0, basis.MatchedQty)
}

func TestMatchSumsNetAmountAcrossLots(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 3, AvgPrice: 2}
	txns := []broker.Transaction{
		buyTxn("a", "AAPL_011521C100", 2, 2.0, 5),
		buyTxn("b", "AAPL_011521C100", 1, 2.0, 1),
	}

	basis := Match(pos, txns)
	require.NotNil(t, basis)
	// most recent lot first
	assert.Equal(t, "b", basis.TransactionID)
	assert.Equal(t, 3.0, basis.MatchedQty)

	want := txns[0].NetAmount.Add(txns[1].NetAmount)
	assert.True(t, basis.NetAmount.Equal(want), "net amount %s != %s", basis.NetAmount, want)
}

func TestMatchNeverExceedsPositionQuantity(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 2, AvgPrice: 2}
	txns := []broker.Transaction{
		buyTxn("big", "AAPL_011521C100", 5, 2.0, 1),
	}

	basis := Match(pos, txns)
	require.NotNil(t, basis)
	assert.LessOrEqual(t, basis.MatchedQty, pos.Qty)
}

func TestMatchIgnoresOtherSymbolsAndSells(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 1, AvgPrice: 2}
	sell := buyTxn("sell", "AAPL_011521C100", 1, 2.0, 1)
	sell.Side = broker.Sell
	txns := []broker.Transaction{
		buyTxn("other", "MSFT_011521C200", 1, 2.0, 1),
		sell,
	}

	assert.Nil(t, Match(pos, txns))
}

func TestMatchExpirationFromFirstMatchedLot(t *testing.T) {
	pos := broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL", Qty: 2, AvgPrice: 2}
	first := buyTxn("first", "AAPL_011521C100", 1, 2.0, 1)
	second := buyTxn("second", "AAPL_011521C100", 1, 2.0, 8)
	second.ExpirationDate = time.Date(2021, 2, 19, 0, 0, 0, 0, time.UTC)

	basis := Match(pos, []broker.Transaction{second, first})
	require.NotNil(t, basis)
	assert.Equal(t, first.ExpirationDate, basis.ExpirationDate)
}

func TestPositionsParsesStrike(t *testing.T) {
	positions := []broker.Position{
		{
			Symbol:      "AAPL_011521C100",
			Underlying:  "AAPL",
			Qty:         1,
			AvgPrice:    2,
			Description: "AAPL Jan 15 2021 100.0 Call",
		},
		{Symbol: "MSFT", Underlying: "MSFT", Qty: 10, AvgPrice: 210, Description: "Microsoft Corp"},
	}

	out := Positions(positions, nil)
	assert.Equal(t, 100.0, out[0].Strike)
	assert.Zero(t, out[1].Strike)
	assert.Nil(t, out[0].Basis)
}

func TestParseStrike(t *testing.T) {
	strike, ok := ParseStrike("AAPL Jan 15 2021 100.0 Call")
	require.True(t, ok)
	assert.Equal(t, 100.0, strike)

	_, ok = ParseStrike("Call")
	assert.False(t, ok)
	_, ok = ParseStrike("AAPL weird Call")
	assert.False(t, ok)
}
