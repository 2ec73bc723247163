// Package state owns the per-symbol tracking state: price history,
// derived signals, current-bar conditions, and the linked position.
package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"seller/internal/broker"
	"seller/internal/series"
	"seller/internal/strategy"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrSymbolExists  = errors.New("symbol already tracked")
)

// SymbolState tracks one symbol. Option states always carry a position
// whose Underlying names a sibling equity state; equity states carry
// the position of one of the options referencing them.
type SymbolState struct {
	Position   *broker.Position
	Series     *series.PriceSeries
	Signals    strategy.Signals
	Conditions strategy.Conditions
}

// Store maps symbols to their state. The engine owns the store and
// mutates it from a single goroutine; the mutex only guards incidental
// readers such as the metrics endpoint.
type Store struct {
	mu      sync.RWMutex
	symbols map[string]*SymbolState
}

func NewStore() *Store {
	return &Store{symbols: make(map[string]*SymbolState)}
}

// Add registers a new symbol, failing with ErrSymbolExists when it is
// already tracked. Use Put to replace unconditionally.
func (s *Store) Add(symbol string, ps *series.PriceSeries, pos *broker.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.symbols[symbol]; ok {
		return fmt.Errorf("%s: %w", symbol, ErrSymbolExists)
	}
	s.put(symbol, ps, pos)
	return nil
}

// Put registers a symbol, replacing any existing state.
func (s *Store) Put(symbol string, ps *series.PriceSeries, pos *broker.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(symbol, ps, pos)
}

func (s *Store) put(symbol string, ps *series.PriceSeries, pos *broker.Position) {
	if ps == nil {
		ps = series.New(symbol)
	}
	s.symbols[symbol] = &SymbolState{
		Position:   pos,
		Series:     ps,
		Signals:    strategy.Signals{},
		Conditions: strategy.Conditions{},
	}
}

func (s *Store) Get(symbol string) (*SymbolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.symbols[symbol]
	return st, ok
}

func (s *Store) Has(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.symbols[symbol]
	return ok
}

// AppendTick appends one bar to a tracked symbol's series, preserving
// timestamp order.
func (s *Store) AppendTick(symbol string, bar series.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.symbols[symbol]
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	if err := st.Series.Append(bar); err != nil {
		return fmt.Errorf("%s: %w", symbol, err)
	}
	return nil
}

// SetPosition replaces the position link on a tracked symbol.
func (s *Store) SetPosition(symbol string, pos *broker.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.symbols[symbol]
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	st.Position = pos
	return nil
}

func (s *Store) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.symbols, symbol)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}

// Symbols returns all tracked symbols in sorted order so iteration over
// the store is deterministic.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
