package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seller/internal/broker"
	"seller/internal/series"
)

func TestAddRejectsDuplicate(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Add("AAPL", nil, nil))
	err := store.Add("AAPL", nil, nil)
	assert.ErrorIs(t, err, ErrSymbolExists)
}

func TestPutReplaces(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Add("AAPL", nil, nil))
	pos := &broker.Position{Symbol: "AAPL_011521C100", Underlying: "AAPL"}
	store.Put("AAPL", nil, pos)

	st, ok := store.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, pos, st.Position)
}

func TestAppendTickUnknownSymbol(t *testing.T) {
	store := NewStore()
	err := store.AppendTick("MSFT", series.Bar{Time: time.Now()})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestAppendTickKeepsOrder(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Add("AAPL", nil, nil))

	t0 := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.AppendTick("AAPL", series.Bar{Time: t0, Close: 100}))
	err := store.AppendTick("AAPL", series.Bar{Time: t0.Add(-time.Minute), Close: 99})
	assert.True(t, errors.Is(err, series.ErrOutOfOrder))

	st, _ := store.Get("AAPL")
	assert.Equal(t, 1, st.Series.Len())
}

func TestRemoveAndSymbols(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Add("MSFT", nil, nil))
	require.NoError(t, store.Add("AAPL", nil, nil))
	require.NoError(t, store.Add("AAPL_011521C100", nil, nil))

	assert.Equal(t, []string{"AAPL", "AAPL_011521C100", "MSFT"}, store.Symbols())

	store.Remove("MSFT")
	assert.False(t, store.Has("MSFT"))
	assert.Equal(t, 2, store.Len())
}
