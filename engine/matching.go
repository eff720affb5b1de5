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
package engine

import (
	"fmt"
	"time"

	"github.com/penny-vault/pvcgt/data"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// bnbWindowDays is the statutory bed-and-breakfast look-ahead: an acquisition
// exactly 30 days after the disposal still matches, 31 does not.
const bnbWindowDays = 30

// dayLot aggregates all acquisitions of one symbol on one calendar day into a
// single weighted lot, per the same-day rule. Available quantity shrinks as
// same-day disposals and pending bed-and-breakfast disposals consume it; only
// the residual enters the Section 104 pool at the end of the day.
type dayLot struct {
	symbol        string
	date          time.Time
	quantity      decimal.Decimal
	cost          decimal.Decimal
	available     decimal.Decimal
	availableCost decimal.Decimal
}

func (lot *dayLot) add(qty decimal.Decimal, cost decimal.Decimal) {
	lot.quantity = lot.quantity.Add(qty)
	lot.cost = lot.cost.Add(cost)
	lot.available = lot.available.Add(qty)
	lot.availableCost = lot.availableCost.Add(cost)
}

// consume removes qty shares from the lot at its weighted average cost and
// returns the proportional cost extracted. Callers must not request more than
// lot.available.
func (lot *dayLot) consume(qty decimal.Decimal) decimal.Decimal {
	cost := lot.availableCost.Mul(qty).Div(lot.available)
	lot.available = lot.available.Sub(qty)
	lot.availableCost = lot.availableCost.Sub(cost)
	return cost
}

// pendingDisposal is a disposal whose bed-and-breakfast window is still open.
// It leaves the queue when fully matched or when the horizon passes, at which
// point the residual quantity resolves against the Section 104 pool.
type pendingDisposal struct {
	source      *data.Transaction
	date        time.Time
	symbol      string
	quantity    decimal.Decimal
	remaining   decimal.Decimal
	netProceeds decimal.Decimal
	horizon     time.Time
	matches     []data.Match
}

// processDisposal runs phase 1 (same-day) against the shared day lot and
// either finalizes the disposal or parks it in the pending queue for the
// bed-and-breakfast window.
func (calc *calculation) processDisposal(trx *data.Transaction, lots map[string]*dayLot) error {
	if trx.Quantity.LessThanOrEqual(decimal.Zero) {
		calc.addError(IssueParsing, "disposal quantity must be positive", trx)
		return nil
	}

	netProceeds, err := calc.disposalProceeds(trx)
	if err != nil {
		return err
	}
	if netProceeds == nil {
		return nil // reference data missing; already recorded
	}

	pd := &pendingDisposal{
		source:      trx,
		date:        data.Day(trx.Date),
		symbol:      trx.Symbol,
		quantity:    trx.Quantity,
		remaining:   trx.Quantity,
		netProceeds: *netProceeds,
		horizon:     data.Day(trx.Date).AddDate(0, 0, bnbWindowDays),
	}

	// Phase 1: same-day rule against the shared acquisition lot
	if lot, ok := lots[pd.symbol]; ok && lot.available.IsPositive() {
		qty := decimal.Min(pd.remaining, lot.available)
		cost := lot.consume(qty)
		pd.matches = append(pd.matches, data.Match{
			Rule:          data.MatchSameDay,
			Quantity:      qty,
			AllocatedCost: cost,
		})
		pd.remaining = pd.remaining.Sub(qty)
	}

	if pd.remaining.IsZero() {
		calc.finalizeDisposal(pd)
		return nil
	}

	calc.pending = append(calc.pending, pd)
	return nil
}

// offerLotToPending runs phase 2: a freshly integrated acquisition lot is
// offered to queued disposals in disposal-date order. Consumed shares never
// reach the Section 104 pool.
func (calc *calculation) offerLotToPending(lot *dayLot) {
	remaining := calc.pending[:0]
	for _, pd := range calc.pending {
		if pd.symbol != lot.symbol || !pd.date.Before(lot.date) || lot.date.After(pd.horizon) ||
			!lot.available.IsPositive() {
			remaining = append(remaining, pd)
			continue
		}

		qty := decimal.Min(pd.remaining, lot.available)
		cost := lot.consume(qty)
		pd.matches = append(pd.matches, data.Match{
			Rule:          data.MatchBedAndBreakfast,
			Quantity:      qty,
			AllocatedCost: cost,
		})
		pd.remaining = pd.remaining.Sub(qty)

		if pd.remaining.IsZero() {
			calc.finalizeDisposal(pd)
		} else {
			remaining = append(remaining, pd)
		}
	}
	calc.pending = remaining
}

// closePendingBefore runs phase 3 for every queued disposal whose
// bed-and-breakfast window closed before the given day.
func (calc *calculation) closePendingBefore(day time.Time) error {
	remaining := calc.pending[:0]
	for _, pd := range calc.pending {
		if pd.horizon.Before(day) {
			if err := calc.resolveAgainstPool(pd); err != nil {
				return err
			}
			continue
		}
		remaining = append(remaining, pd)
	}
	calc.pending = remaining
	return nil
}

// closeAllPending drains the queue at end of input.
func (calc *calculation) closeAllPending() error {
	for _, pd := range calc.pending {
		if err := calc.resolveAgainstPool(pd); err != nil {
			return err
		}
	}
	calc.pending = nil
	return nil
}

// resolveAgainstPool runs phase 3: the remaining quantity extracts cost from
// the Section 104 pool at its weighted average. Quantity beyond the pool is a
// short position, not a gain or loss.
func (calc *calculation) resolveAgainstPool(pd *pendingDisposal) error {
	poolQty := calc.ledger.Quantity(pd.symbol)
	matched := decimal.Min(pd.remaining, poolQty)

	if matched.IsPositive() {
		cost, err := calc.ledger.RemoveFromPool(pd.symbol, matched)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvariantViolation, err.Error())
		}
		pd.matches = append(pd.matches, data.Match{
			Rule:          data.MatchSection104,
			Quantity:      matched,
			AllocatedCost: cost,
		})
		pd.remaining = pd.remaining.Sub(matched)
	}

	if pd.remaining.IsPositive() {
		short := &data.ShortPosition{
			Date:        pd.date,
			Symbol:      pd.symbol,
			Quantity:    pd.remaining,
			ProceedsGBP: pd.netProceeds.Mul(pd.remaining).Div(pd.quantity),
		}
		calc.shorts = append(calc.shorts, short)
		log.Warn().Str("Symbol", pd.symbol).Str("Quantity", pd.remaining.String()).
			Msg("disposal exceeds shares held; recording short position")
		pd.remaining = decimal.Zero
	}

	calc.finalizeDisposal(pd)
	return nil
}

// finalizeDisposal allocates proceeds across the match breakdown and emits
// the disposal record. Each phase receives proceeds in proportion to the
// quantity it consumed.
func (calc *calculation) finalizeDisposal(pd *pendingDisposal) {
	matchedQty := decimal.Zero
	totalCost := decimal.Zero
	for ii := range pd.matches {
		match := &pd.matches[ii]
		match.AllocatedProceeds = pd.netProceeds.Mul(match.Quantity).Div(pd.quantity)
		matchedQty = matchedQty.Add(match.Quantity)
		totalCost = totalCost.Add(match.AllocatedCost)
	}

	if matchedQty.IsZero() {
		return // fully short; the short record carries the proceeds
	}

	gross := pd.netProceeds.Mul(matchedQty).Div(pd.quantity)
	disposal := &data.Disposal{
		Date:             pd.date,
		Symbol:           pd.symbol,
		QuantityDisposed: matchedQty,
		GrossProceedsGBP: gross,
		TotalCostGBP:     totalCost,
		GainOrLoss:       gross.Sub(totalCost),
		Breakdown:        pd.matches,
		Source:           pd.source,
	}
	calc.disposals = append(calc.disposals, disposal)
	calc.logDisposal(disposal)
}
