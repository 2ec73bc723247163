package strategy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seller/internal/series"
)

func seriesOf(t *testing.T, closes ...float64) *series.PriceSeries {
	t.Helper()
	base := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	ps := series.New("TEST")
	for i, c := range closes {
		err := ps.Append(series.Bar{Time: base.Add(time.Duration(i) * 5 * time.Minute), Close: c})
		require.NoError(t, err)
	}
	return ps
}

func constantSeries(t *testing.T, v float64, n int) *series.PriceSeries {
	t.Helper()
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = v
	}
	return seriesOf(t, closes...)
}

func TestMovingAveragesConstantSeries(t *testing.T) {
	ps := constantSeries(t, 42.5, 30)
	signals := RunGenerators([]Generator{NewMovingAverages(5, 10)}, ps)

	for _, name := range []string{"SMA_5", "SMA_10", "EMA_5", "EMA_10"} {
		sig, ok := signals[name]
		require.True(t, ok, name)
		v, ok := sig.At(ps.Len() - 1)
		require.True(t, ok, name)
		assert.InDelta(t, 42.5, v, 1e-9, name)
	}
}

func TestMovingAveragesSMAValues(t *testing.T) {
	ps := seriesOf(t, 1, 2, 3, 4, 5, 6)
	signals := RunGenerators([]Generator{NewMovingAverages(3)}, ps)

	sig := signals["SMA_3"]
	assert.Equal(t, 2, sig.Offset)

	_, ok := sig.At(1)
	assert.False(t, ok, "no value before the window fills")

	v, ok := sig.At(2)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)

	v, ok = sig.At(5)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)
}

func TestMovingAveragesEMASeed(t *testing.T) {
	ps := seriesOf(t, 10, 20, 30)
	signals := RunGenerators([]Generator{NewMovingAverages(2)}, ps)

	sig := signals["EMA_2"]
	assert.Equal(t, 0, sig.Offset)

	// alpha = 2/3: 10, 16.667, 25.556
	v, ok := sig.At(0)
	require.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)
	v, ok = sig.At(2)
	require.True(t, ok)
	assert.InDelta(t, 25.0+5.0/9.0, v, 1e-9)
}

func TestMovingAveragesSkipsShortWindowsIndependently(t *testing.T) {
	ps := constantSeries(t, 100, 60)
	signals := RunGenerators([]Generator{NewMovingAverages(5, 50, 250)}, ps)

	for _, w := range []int{5, 50} {
		_, ok := signals[fmt.Sprintf("SMA_%d", w)]
		assert.True(t, ok, "window %d should be computed", w)
		_, ok = signals[fmt.Sprintf("EMA_%d", w)]
		assert.True(t, ok, "window %d should be computed", w)
	}
	_, ok := signals["SMA_250"]
	assert.False(t, ok, "250-bar window exceeds history")
	_, ok = signals["EMA_250"]
	assert.False(t, ok, "250-bar window exceeds history")
}

func TestLaterGeneratorsSeeEarlierSignals(t *testing.T) {
	ps := constantSeries(t, 100, 10)
	var sawSMA bool
	spy := func(_ *series.PriceSeries, signals Signals) Signals {
		_, sawSMA = signals["SMA_5"]
		return nil
	}
	RunGenerators([]Generator{NewMovingAverages(5), spy}, ps)
	assert.True(t, sawSMA)
}
