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
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pvcgt/data"
	"github.com/penny-vault/pvcgt/fx"
	"github.com/penny-vault/pvcgt/ledger"
	"github.com/penny-vault/pvcgt/refdata"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Engine computes UK capital gains over a canonical transaction stream. Each
// call to CalculateCapitalGain rebuilds the position ledger from scratch.
// Engines running concurrently over disjoint inputs share only the reference
// services; of these, only the ISIN service is written to: every run adds the
// ISIN -> symbol pairs seen in its transactions, and they persist across runs.
type Engine struct {
	fxSvc     fx.Service
	isin      *refdata.IsinService
	prices    *refdata.PriceService
	eri       *refdata.EriTable
	spinOffs  []*data.SpinOffEvent
	taxYear   data.TaxYear
	allowance decimal.Decimal
}

type Option func(*Engine)

func WithIsinService(svc *refdata.IsinService) Option {
	return func(engine *Engine) { engine.isin = svc }
}

func WithPriceService(svc *refdata.PriceService) Option {
	return func(engine *Engine) { engine.prices = svc }
}

func WithEriTable(table *refdata.EriTable) Option {
	return func(engine *Engine) { engine.eri = table }
}

func WithSpinOffs(events []*data.SpinOffEvent) Option {
	return func(engine *Engine) { engine.spinOffs = events }
}

func WithAnnualAllowance(allowance decimal.Decimal) Option {
	return func(engine *Engine) { engine.allowance = allowance }
}

// New creates an engine for the given tax year. The FX service is mandatory;
// reference services default to empty implementations.
func New(fxSvc fx.Service, taxYear data.TaxYear, opts ...Option) *Engine {
	engine := &Engine{
		fxSvc:   fxSvc,
		isin:    refdata.NewIsinService(nil),
		prices:  refdata.NewPriceService(nil),
		eri:     refdata.NewEriTable(nil),
		taxYear: taxYear,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// LogEntry is one human-readable line of the calculation log, keyed by
// disposal date for auditing and timeline display.
type LogEntry struct {
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
}

// Result is the complete output of one calculation: the disposal ledger plus
// everything the report assembler aggregates.
type Result struct {
	RunID     uuid.UUID       `json:"runId"`
	TaxYear   data.TaxYear    `json:"taxYear"`
	Allowance decimal.Decimal `json:"annualAllowance"`

	Disposals []*data.Disposal      `json:"disposals"`
	Shorts    []*data.ShortPosition `json:"shortPositions,omitempty"`
	Audit     []*data.AuditEntry    `json:"audit,omitempty"`

	Dividends []*DividendRecord  `json:"dividends,omitempty"`
	Interest  []*InterestRecord  `json:"interest,omitempty"`
	EriIncome []*EriIncomeRecord `json:"eriIncome,omitempty"`
	FeesGBP   decimal.Decimal    `json:"feesGBP"`
	TaxGBP    decimal.Decimal    `json:"taxGBP"`

	Portfolio      []*ledger.Position `json:"portfolio"`
	CalculationLog []*LogEntry        `json:"calculationLog"`

	Errors   []*Issue `json:"errors,omitempty"`
	Warnings []*Issue `json:"warnings,omitempty"`
}

// calculation is the per-run mutable state. One instance exclusively owns its
// ledger; nothing is shared with other runs.
type calculation struct {
	engine *Engine
	ledger *ledger.Ledger

	pending        []*pendingDisposal
	spinOffCredits map[string]*spinOffCredit

	disposals []*data.Disposal
	shorts    []*data.ShortPosition
	audit     []*data.AuditEntry
	dividends map[string]*DividendRecord
	interest  map[string]*InterestRecord
	eriIncome []*EriIncomeRecord
	feesGBP   decimal.Decimal
	taxGBP    decimal.Decimal
	logLines  []*LogEntry
	errors    []*Issue
	warnings  []*Issue
}

// CalculateCapitalGain runs the full pipeline over the store: canonical sort,
// three-phase matching, corporate actions, income aggregation. Cancellation
// between events discards all partial output and returns the context's error.
// Apart from cancellation, only an invariant violation returns a non-nil
// error; everything else accumulates on the result.
func (engine *Engine) CalculateCapitalGain(ctx context.Context, store *Store) (*Result, error) {
	calc := &calculation{
		engine:         engine,
		ledger:         ledger.New(),
		spinOffCredits: make(map[string]*spinOffCredit),
		dividends:      make(map[string]*DividendRecord),
		interest:       make(map[string]*InterestRecord),
		feesGBP:        decimal.Zero,
		taxGBP:         decimal.Zero,
	}

	for _, trx := range store.Transactions() {
		engine.isin.AddFromTransaction(trx.ISIN, trx.Symbol)
	}

	days, byDay := calc.activityDays(store)
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := calc.closePendingBefore(day); err != nil {
			return nil, err
		}

		calc.applySpinOffs(day)

		lots := make(map[string]*dayLot)
		endOfDay := make([]*data.Transaction, 0)

		for _, trx := range byDay[day] {
			switch {
			case trx.Action == data.SpinOff:
				// handled via the configured spin-off events above
			case trx.IsAcquisition():
				if err := calc.processAcquisition(trx, lots); err != nil {
					return nil, err
				}
			case trx.IsDisposal():
				if err := calc.processDisposal(trx, lots); err != nil {
					return nil, err
				}
			default:
				endOfDay = append(endOfDay, trx)
			}
		}

		// Phase 2 offers, then residuals join the Section 104 pool.
		for _, symbol := range sortedLotSymbols(lots) {
			lot := lots[symbol]
			calc.offerLotToPending(lot)
			if lot.available.IsPositive() {
				calc.ledger.AddToPool(lot.symbol, lot.available, lot.availableCost)
			}
		}

		for _, trx := range endOfDay {
			calc.processEndOfDay(trx)
		}

		calc.applyEri(day)
	}

	if err := calc.closeAllPending(); err != nil {
		return nil, err
	}
	calc.warnUnappliedSpinOffs()

	return calc.result(), nil
}

// activityDays merges transaction days with spin-off and ERI dates so
// corporate actions falling on otherwise quiet days still process. Only such
// dates up to the end of the configured tax year are added; a spin-off or ERI
// entry dated later is processed only when a transaction falls on its date.
func (calc *calculation) activityDays(store *Store) ([]time.Time, map[time.Time][]*data.Transaction) {
	days, byDay := store.days()

	seen := make(map[time.Time]bool, len(days))
	for _, day := range days {
		seen[day] = true
	}

	addDay := func(t time.Time) {
		day := data.Day(t)
		if !seen[day] && !day.After(calc.engine.taxYear.End()) {
			seen[day] = true
			days = append(days, day)
		}
	}

	for _, event := range calc.engine.spinOffs {
		addDay(event.Date)
	}
	for _, entry := range calc.engine.eri.Entries() {
		addDay(entry.PeriodEndDate)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, byDay
}

// processAcquisition folds the acquisition into its (symbol, day) lot after
// resolving any ISIN-driven pool merge and spin-off receipt credit.
func (calc *calculation) processAcquisition(trx *data.Transaction, lots map[string]*dayLot) error {
	if trx.Quantity.LessThanOrEqual(decimal.Zero) {
		calc.addError(IssueParsing, "acquisition quantity must be positive", trx)
		return nil
	}

	calc.mergeSharedIsinPools(trx)

	cost, err := calc.acquisitionCost(trx)
	if err != nil {
		return err
	}
	if cost == nil {
		return nil // reference data missing; already recorded
	}

	lot, ok := lots[trx.Symbol]
	if !ok {
		lot = &dayLot{symbol: trx.Symbol, date: data.Day(trx.Date)}
		lots[trx.Symbol] = lot
	}
	lot.add(trx.Quantity, *cost)
	return nil
}

// acquisitionCost values the acquisition in GBP including fees. Spin-off
// receipts take their buffered apportioned basis instead of the row's cash
// amount; transfers and stock activity without a price fall back to the
// initial-price service.
func (calc *calculation) acquisitionCost(trx *data.Transaction) (*decimal.Decimal, error) {
	if credit := calc.claimSpinOffCredit(trx); credit != nil {
		return credit, nil
	}

	gross := trx.Amount.Abs()
	if gross.IsZero() {
		gross = trx.Quantity.Mul(trx.Price)
	}

	currency := trx.Currency
	if gross.IsZero() {
		price := calc.engine.prices.Price(trx.Symbol, trx.Date)
		if price == nil {
			if trx.Quantity.IsZero() {
				calc.addWarning(IssueReferenceDataMissing, "no initial price; zero-quantity row skipped", trx)
			} else {
				calc.addError(IssueReferenceDataMissing,
					fmt.Sprintf("no initial price for %s on %s", trx.Symbol, data.Day(trx.Date).Format("2006-01-02")), trx)
			}
			return nil, nil
		}
		gross = trx.Quantity.Mul(price.Price)
		currency = price.Currency
	}

	costGBP, ok := calc.convert(gross, currency, trx)
	if !ok {
		return nil, nil
	}

	if trx.Fees.IsPositive() {
		feesGBP, ok := calc.convert(trx.Fees, trx.Currency, trx)
		if !ok {
			return nil, nil
		}
		costGBP = costGBP.Add(feesGBP)
	}

	return &costGBP, nil
}

// disposalProceeds values the disposal's net GBP proceeds: cash received less
// disposal fees, each converted at the transaction date.
func (calc *calculation) disposalProceeds(trx *data.Transaction) (*decimal.Decimal, error) {
	gross := trx.Amount.Abs()
	if gross.IsZero() {
		gross = trx.Quantity.Mul(trx.Price)
	}

	proceeds, ok := calc.convert(gross, trx.Currency, trx)
	if !ok {
		return nil, nil
	}

	if trx.Fees.IsPositive() {
		feesGBP, ok := calc.convert(trx.Fees, trx.Currency, trx)
		if !ok {
			return nil, nil
		}
		proceeds = proceeds.Sub(feesGBP)
	}

	return &proceeds, nil
}

// convert exchanges an amount into GBP at the transaction's own date. A
// missing rate is recorded against the transaction and reported as absent.
func (calc *calculation) convert(amount decimal.Decimal, currency string, trx *data.Transaction) (decimal.Decimal, bool) {
	converted, err := fx.Convert(calc.engine.fxSvc, amount, currency, trx.Date)
	if err != nil {
		if amount.IsZero() {
			calc.addWarning(IssueReferenceDataMissing, err.Error(), trx)
		} else {
			calc.addError(IssueReferenceDataMissing, err.Error(), trx)
		}
		return decimal.Zero, false
	}
	return converted, true
}

func (calc *calculation) addError(kind IssueKind, msg string, trx *data.Transaction) {
	issue := &Issue{Kind: kind, Message: msg, Source: trx}
	calc.errors = append(calc.errors, issue)
	log.Error().Object("Issue", issue).Msg("calculation error")
}

func (calc *calculation) addWarning(kind IssueKind, msg string, trx *data.Transaction) {
	issue := &Issue{Kind: kind, Message: msg, Source: trx}
	calc.warnings = append(calc.warnings, issue)
	log.Warn().Object("Issue", issue).Msg("calculation warning")
}

func (calc *calculation) logDisposal(disposal *data.Disposal) {
	desc := fmt.Sprintf("Sold %s %s for %s GBP against cost of %s GBP (%s)",
		disposal.QuantityDisposed.String(), disposal.Symbol,
		disposal.GrossProceedsGBP.StringFixedBank(2), disposal.TotalCostGBP.StringFixedBank(2),
		describeBreakdown(disposal.Breakdown))
	calc.logLines = append(calc.logLines, &LogEntry{
		Date:        disposal.Date,
		Symbol:      disposal.Symbol,
		Description: desc,
	})
}

func describeBreakdown(breakdown []data.Match) string {
	desc := ""
	for ii, match := range breakdown {
		if ii > 0 {
			desc += ", "
		}
		desc += fmt.Sprintf("%s x %s", match.Quantity.String(), match.Rule)
	}
	return desc
}

func sortedLotSymbols(lots map[string]*dayLot) []string {
	symbols := make([]string, 0, len(lots))
	for symbol := range lots {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// result freezes the calculation into an immutable output.
func (calc *calculation) result() *Result {
	sort.SliceStable(calc.logLines, func(i, j int) bool {
		return calc.logLines[i].Date.Before(calc.logLines[j].Date)
	})
	sort.SliceStable(calc.disposals, func(i, j int) bool {
		return calc.disposals[i].Date.Before(calc.disposals[j].Date)
	})

	return &Result{
		RunID:          uuid.New(),
		TaxYear:        calc.engine.taxYear,
		Allowance:      calc.engine.allowance,
		Disposals:      calc.disposals,
		Shorts:         calc.shorts,
		Audit:          calc.audit,
		Dividends:      calc.dividendRecords(),
		Interest:       calc.interestRecords(),
		EriIncome:      calc.eriIncome,
		FeesGBP:        calc.feesGBP,
		TaxGBP:         calc.taxGBP,
		Portfolio:      calc.ledger.Positions(),
		CalculationLog: calc.logLines,
		Errors:         calc.errors,
		Warnings:       calc.warnings,
	}
}
