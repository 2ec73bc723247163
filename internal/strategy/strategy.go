// Package strategy holds the signal and condition pipelines: ordered
// lists of pure functions that derive indicator series from price
// history and boolean triggers from those indicators.
package strategy

import (
	"sort"

	"seller/internal/series"
)

// Signal is a derived series aligned by bar index with a PriceSeries.
// Values before Offset are not computable (insufficient history); there
// is never a placeholder zero.
type Signal struct {
	Offset int
	Values []float64
}

// At returns the signal value for bar index i, and whether it exists.
func (s Signal) At(i int) (float64, bool) {
	j := i - s.Offset
	if j < 0 || j >= len(s.Values) {
		return 0, false
	}
	return s.Values[j], true
}

type Signals map[string]Signal

type Conditions map[string]bool

// Names returns the set's triggered condition names in sorted order.
func (c Conditions) Names() []string {
	names := make([]string, 0, len(c))
	for name, ok := range c {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Generator derives named indicator series from price history and the
// signals produced by earlier generators in the same cycle. It returns
// updates which the pipeline merges into the symbol's signal map.
type Generator func(ps *series.PriceSeries, signals Signals) Signals

// Evaluator sets boolean triggers for the current bar. Evaluators read
// price and signals and mutate the condition set in place.
type Evaluator func(ps *series.PriceSeries, signals Signals, conditions Conditions)

// RunGenerators executes generators in order against a fresh signal
// map, later generators seeing the output of earlier ones.
func RunGenerators(generators []Generator, ps *series.PriceSeries) Signals {
	signals := Signals{}
	for _, generate := range generators {
		for name, sig := range generate(ps, signals) {
			signals[name] = sig
		}
	}
	return signals
}

// RunEvaluators executes evaluators in order against a fresh condition
// set. Conditions never carry over from a previous bar.
func RunEvaluators(evaluators []Evaluator, ps *series.PriceSeries, signals Signals) Conditions {
	conditions := Conditions{}
	for _, evaluate := range evaluators {
		evaluate(ps, signals, conditions)
	}
	return conditions
}
