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

// spinOffCredit is apportioned cost basis waiting for its destination
// acquisition to appear in the stream.
type spinOffCredit struct {
	event  *data.SpinOffEvent
	amount decimal.Decimal
}

// applySpinOffs reduces each source pool by the apportioned basis and buffers
// the credit for the destination receipt. Runs before the day's acquisitions
// so a receipt on the same date finds its credit.
func (calc *calculation) applySpinOffs(day time.Time) {
	for _, event := range calc.engine.spinOffs {
		if !data.Day(event.Date).Equal(day) {
			continue
		}

		pos := calc.ledger.Position(event.SourceSymbol)
		if pos == nil {
			calc.addWarning(IssueSpinOffUnapplied,
				fmt.Sprintf("spin-off %s -> %s: no position in source", event.SourceSymbol, event.DestSymbol), nil)
			continue
		}

		destCost := pos.Amount.Mul(event.CostProportion)
		if _, err := calc.ledger.ReduceCostBasis(event.SourceSymbol, destCost); err != nil {
			calc.addWarning(IssueSpinOffUnapplied, err.Error(), nil)
			continue
		}

		calc.spinOffCredits[event.DestSymbol] = &spinOffCredit{event: event, amount: destCost}
		calc.audit = append(calc.audit, &data.AuditEntry{
			Date:   day,
			Kind:   data.AuditSpinOffReduction,
			Symbol: event.SourceSymbol,
			Delta:  destCost.Neg(),
			Note:   fmt.Sprintf("spin-off into %s", event.DestSymbol),
		})

		log.Info().Str("Source", event.SourceSymbol).Str("Dest", event.DestSymbol).
			Str("ApportionedCost", destCost.String()).Msg("applied spin-off")
	}
}

// claimSpinOffCredit returns the buffered basis when the acquisition is the
// spin-off's destination receipt: a stock-activity row with no cash amount
// dated on or after the spin-off.
func (calc *calculation) claimSpinOffCredit(trx *data.Transaction) *decimal.Decimal {
	if trx.Action != data.StockActivity || !trx.Amount.IsZero() {
		return nil
	}

	credit, ok := calc.spinOffCredits[trx.Symbol]
	if !ok || data.Day(trx.Date).Before(data.Day(credit.event.Date)) {
		return nil
	}

	delete(calc.spinOffCredits, trx.Symbol)
	calc.audit = append(calc.audit, &data.AuditEntry{
		Date:   data.Day(trx.Date),
		Kind:   data.AuditSpinOffAddition,
		Symbol: trx.Symbol,
		Delta:  credit.amount,
		Note:   fmt.Sprintf("spin-off from %s", credit.event.SourceSymbol),
	})

	amount := credit.amount
	return &amount
}

func (calc *calculation) warnUnappliedSpinOffs() {
	for dest, credit := range calc.spinOffCredits {
		calc.addWarning(IssueSpinOffUnapplied,
			fmt.Sprintf("spin-off receipt for %s never observed; %s GBP of basis unapplied",
				dest, credit.amount.String()), nil)
	}
}

// mergeSharedIsinPools folds pools held under other tickers of the same ISIN
// into the acquiring ticker (exchange renames, share-class transitions).
func (calc *calculation) mergeSharedIsinPools(trx *data.Transaction) {
	if trx.ISIN == "" {
		return
	}

	for _, other := range calc.engine.isin.Symbols(trx.ISIN) {
		if other == trx.Symbol {
			continue
		}
		pos := calc.ledger.Position(other)
		if pos == nil {
			continue
		}

		merged := pos.Amount
		if err := calc.ledger.Merge(other, trx.Symbol); err != nil {
			calc.addWarning(IssueCostBasisClamped, err.Error(), trx)
			continue
		}

		calc.audit = append(calc.audit, &data.AuditEntry{
			Date:   data.Day(trx.Date),
			Kind:   data.AuditIsinMerge,
			Symbol: trx.Symbol,
			Delta:  merged,
			Note:   fmt.Sprintf("merged %s via %s", other, trx.ISIN),
		})

		log.Info().Str("From", other).Str("To", trx.Symbol).Str("ISIN", trx.ISIN).
			Msg("merged pools sharing an ISIN")
	}
}

// applyEri taxes excess reported income for holders as of the period end date
// and reduces the pool's cost basis by the same amount, clamped at zero.
func (calc *calculation) applyEri(day time.Time) {
	for _, entry := range calc.engine.eri.Entries() {
		if !data.Day(entry.PeriodEndDate).Equal(day) {
			continue
		}

		applied := false
		for _, symbol := range calc.engine.isin.Symbols(entry.ISIN) {
			pos := calc.ledger.Position(symbol)
			if pos == nil {
				continue
			}

			rate, err := calc.engine.fxSvc.Rate(entry.Currency, entry.PeriodEndDate)
			if err != nil {
				calc.addError(IssueReferenceDataMissing, err.Error(), nil)
				continue
			}

			eriGBP := pos.Quantity.Mul(entry.AmountPerShare).Mul(rate)
			reduced, err := calc.ledger.ReduceCostBasis(symbol, eriGBP)
			if err != nil {
				calc.addWarning(IssueCostBasisClamped, err.Error(), nil)
				continue
			}
			if reduced.LessThan(eriGBP) {
				calc.addWarning(IssueCostBasisClamped,
					fmt.Sprintf("ERI reduction for %s clamped at pool basis", symbol), nil)
			}

			calc.eriIncome = append(calc.eriIncome, &EriIncomeRecord{
				Date:      day,
				ISIN:      entry.ISIN,
				Symbol:    symbol,
				AmountGBP: eriGBP,
			})
			calc.audit = append(calc.audit, &data.AuditEntry{
				Date:   day,
				Kind:   data.AuditEriReduction,
				Symbol: symbol,
				Delta:  reduced.Neg(),
				Note:   fmt.Sprintf("excess reported income for %s", entry.ISIN),
			})
			applied = true
		}

		if !applied {
			calc.addWarning(IssueEriSkipped,
				fmt.Sprintf("no position held for %s on %s", entry.ISIN, day.Format("2006-01-02")), nil)
		}
	}
}

// processSplit scales the pool's share count by the ratio carried in the
// transaction's quantity field; cost basis is unchanged.
func (calc *calculation) processSplit(trx *data.Transaction) {
	if trx.Quantity.LessThanOrEqual(decimal.Zero) {
		calc.addError(IssueParsing, "split ratio must be positive", trx)
		return
	}

	if err := calc.ledger.ScaleQuantity(trx.Symbol, trx.Quantity); err != nil {
		calc.addWarning(IssueCostBasisClamped, err.Error(), trx)
		return
	}

	calc.audit = append(calc.audit, &data.AuditEntry{
		Date:   data.Day(trx.Date),
		Kind:   data.AuditSplit,
		Symbol: trx.Symbol,
		Delta:  decimal.Zero,
		Note:   fmt.Sprintf("split ratio %s", trx.Quantity.String()),
	})
}
