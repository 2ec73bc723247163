package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seller/internal/series"
)

// flat signal aligned from bar 0 with a constant value.
func flatSignal(v float64, n int) Signal {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return Signal{Values: values}
}

func TestEMA200CrossOverSyntheticSeries(t *testing.T) {
	// 204 declining bars keep the close under its EMA_200, then the
	// price gaps up and stays there. The upward cross through the EMA
	// should fire for exactly the bars whose 5-bar lookback still sits
	// in the declining stretch.
	closes := make([]float64, 0, 215)
	for i := 0; i < 204; i++ {
		closes = append(closes, 120-float64(i)*0.1)
	}
	for i := 204; i < 215; i++ {
		closes = append(closes, 200)
	}

	generator := NewMovingAverages(50, 200)
	evaluator := NewEMAConditions()

	base := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	triggered := map[int]bool{}
	ps := series.New("TEST")
	for i, c := range closes {
		bar := series.Bar{Time: base.Add(time.Duration(i) * 5 * time.Minute), Close: c}
		require.NoError(t, ps.Append(bar))

		signals := RunGenerators([]Generator{generator}, ps)
		conditions := RunEvaluators([]Evaluator{evaluator}, ps, signals)
		if conditions[CondEMA200CrossOver] {
			triggered[i] = true
		}
	}

	expected := map[int]bool{204: true, 205: true, 206: true, 207: true}
	assert.Equal(t, expected, triggered)
}

func TestEMA50Vicinity(t *testing.T) {
	ps := seriesOf(t, 100, 100, 100)
	n := ps.Len()

	cases := []struct {
		name string
		ema  float64
		want bool
	}{
		{"inside band", 100, true},
		{"lower edge", 98, true},
		{"upper edge", 102, true},
		{"below band", 97.5, false},
		{"above band", 102.5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signals := Signals{"EMA_50": flatSignal(tc.ema, n)}
			conditions := RunEvaluators([]Evaluator{NewEMAConditions()}, ps, signals)
			assert.Equal(t, tc.want, conditions[CondEMA50Vicinity])
		})
	}
}

func TestEMA50CrossesEMA200(t *testing.T) {
	ps := seriesOf(t, 100, 100, 100)

	signals := Signals{
		"EMA_50":  {Values: []float64{90, 95, 105}},
		"EMA_200": {Values: []float64{100, 100, 100}},
	}
	conditions := RunEvaluators([]Evaluator{NewEMAConditions()}, ps, signals)
	assert.True(t, conditions[CondEMA50CrossesEMA200])

	// already above at the previous bar: no cross
	signals["EMA_50"] = Signal{Values: []float64{90, 101, 105}}
	conditions = RunEvaluators([]Evaluator{NewEMAConditions()}, ps, signals)
	assert.False(t, conditions[CondEMA50CrossesEMA200])
}

func TestMissingSignalsAreSkippedSilently(t *testing.T) {
	ps := seriesOf(t, 100, 101, 102, 103, 104, 105)
	conditions := RunEvaluators([]Evaluator{NewEMAConditions()}, ps, Signals{})
	assert.Empty(t, conditions)
}

func TestEvaluatorIdempotence(t *testing.T) {
	ps := seriesOf(t, 100, 100, 100)
	signals := Signals{
		"EMA_50":  flatSignal(100, 3),
		"EMA_200": flatSignal(100, 3),
	}
	first := RunEvaluators([]Evaluator{NewEMAConditions()}, ps, signals)
	second := RunEvaluators([]Evaluator{NewEMAConditions()}, ps, signals)
	assert.Equal(t, first, second)
}
