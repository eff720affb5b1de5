// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyPool        = errors.New("no section 104 pool for symbol")
	ErrInsufficientPool = errors.New("pool holds fewer shares than requested")
)

// Position is one symbol's Section 104 pool: aggregate share count and
// aggregate GBP cost basis. The weighted average cost is derived, never
// stored.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// WeightedAverageCost returns the pool's cost per share.
func (pos *Position) WeightedAverageCost() decimal.Decimal {
	if pos.Quantity.IsZero() {
		return decimal.Zero
	}
	return pos.Amount.Div(pos.Quantity)
}

func (pos *Position) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Symbol", pos.Symbol)
	e.Str("Quantity", pos.Quantity.String())
	e.Str("Amount", pos.Amount.String())
}

// Ledger maps symbols to their Section 104 pools. Pools with zero quantity
// are removed; quantity and amount never go negative. Only the matching
// engine and corporate-action processor mutate it.
type Ledger struct {
	positions map[string]*Position
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
	}
}

// Position returns the pool for symbol, or nil when none is held.
func (l *Ledger) Position(symbol string) *Position {
	return l.positions[symbol]
}

// Quantity returns the shares held for symbol (zero when no pool exists).
func (l *Ledger) Quantity(symbol string) decimal.Decimal {
	if pos, ok := l.positions[symbol]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}

// AddToPool adds qty shares at a total cost of cost GBP.
func (l *Ledger) AddToPool(symbol string, qty decimal.Decimal, cost decimal.Decimal) {
	pos, ok := l.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		l.positions[symbol] = pos
	}
	pos.Quantity = pos.Quantity.Add(qty)
	pos.Amount = pos.Amount.Add(cost)
}

// RemoveFromPool removes qty shares at the pool's weighted average cost and
// returns the extracted cost. The extraction is computed as
// amount * qty / quantity so the pool is reduced exactly once, with no
// intermediate rounding.
func (l *Ledger) RemoveFromPool(symbol string, qty decimal.Decimal) (decimal.Decimal, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrEmptyPool, symbol)
	}

	if qty.GreaterThan(pos.Quantity) {
		return decimal.Zero, fmt.Errorf("%w: %s has %s, want %s", ErrInsufficientPool,
			symbol, pos.Quantity.String(), qty.String())
	}

	cost := pos.Amount.Mul(qty).Div(pos.Quantity)
	pos.Quantity = pos.Quantity.Sub(qty)
	pos.Amount = pos.Amount.Sub(cost)
	l.zeroNormalize(symbol)

	return cost, nil
}

// ReduceCostBasis lowers the pool's amount by delta GBP, clamping at zero.
// The returned value is the portion actually applied; callers surface a
// warning when it is less than delta.
func (l *Ledger) ReduceCostBasis(symbol string, delta decimal.Decimal) (decimal.Decimal, error) {
	pos, ok := l.positions[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrEmptyPool, symbol)
	}

	applied := delta
	if delta.GreaterThan(pos.Amount) {
		applied = pos.Amount
	}
	pos.Amount = pos.Amount.Sub(applied)

	return applied, nil
}

// ScaleQuantity multiplies the pool's share count by ratio, leaving the cost
// basis unchanged (stock splits).
func (l *Ledger) ScaleQuantity(symbol string, ratio decimal.Decimal) error {
	pos, ok := l.positions[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEmptyPool, symbol)
	}
	pos.Quantity = pos.Quantity.Mul(ratio)
	return nil
}

// Merge folds the pool held under fromSymbol into toSymbol, summing quantity
// and amount (ISIN-driven ticker transitions).
func (l *Ledger) Merge(fromSymbol string, toSymbol string) error {
	from, ok := l.positions[fromSymbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEmptyPool, fromSymbol)
	}

	l.AddToPool(toSymbol, from.Quantity, from.Amount)
	delete(l.positions, fromSymbol)
	return nil
}

// zeroNormalize removes the entry when the pool quantity hits zero so that
// quantity == 0 is always equivalent to "no pool".
func (l *Ledger) zeroNormalize(symbol string) {
	if pos, ok := l.positions[symbol]; ok && pos.Quantity.IsZero() {
		delete(l.positions, symbol)
	}
}

// Positions returns all pools sorted by symbol.
func (l *Ledger) Positions() []*Position {
	positions := make([]*Position, 0, len(l.positions))
	for _, pos := range l.positions {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}
