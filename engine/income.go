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
	"sort"
	"time"

	"github.com/penny-vault/pvcgt/data"
	"github.com/shopspring/decimal"
)

// DividendRecord sums dividend rows per (symbol, date, currency). The fees
// column of a dividend row is withholding tax, tracked separately; it never
// reduces the dividend itself.
type DividendRecord struct {
	Date           time.Time       `json:"date"`
	Symbol         string          `json:"symbol"`
	Currency       string          `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	AmountGBP      decimal.Decimal `json:"amountGBP"`
	WithholdingGBP decimal.Decimal `json:"withholdingGBP"`
}

// InterestRecord groups interest per (broker, currency, calendar month) per
// HMRC convention for interest statements.
type InterestRecord struct {
	Broker    string          `json:"broker"`
	Currency  string          `json:"currency"`
	Month     time.Time       `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	AmountGBP decimal.Decimal `json:"amountGBP"`
}

// EriIncomeRecord is excess reported income taxed in the holder's hands.
type EriIncomeRecord struct {
	Date      time.Time       `json:"date"`
	ISIN      string          `json:"isin"`
	Symbol    string          `json:"symbol"`
	AmountGBP decimal.Decimal `json:"amountGBP"`
}

// processEndOfDay settles income and remaining corporate actions after the
// day's acquisitions and disposals have resolved.
func (calc *calculation) processEndOfDay(trx *data.Transaction) {
	switch trx.Action {
	case data.Dividend:
		calc.processDividend(trx)
	case data.Interest:
		calc.processInterest(trx)
	case data.Fee:
		if feeGBP, ok := calc.convert(trx.Amount.Abs(), trx.Currency, trx); ok {
			calc.feesGBP = calc.feesGBP.Add(feeGBP)
		}
	case data.Tax:
		if taxGBP, ok := calc.convert(trx.Amount.Abs(), trx.Currency, trx); ok {
			calc.taxGBP = calc.taxGBP.Add(taxGBP)
		}
	case data.Split:
		calc.processSplit(trx)
	case data.WireFunds:
		// cash movement; no CGT effect
	}
}

func (calc *calculation) processDividend(trx *data.Transaction) {
	amountGBP, ok := calc.convert(trx.Amount, trx.Currency, trx)
	if !ok {
		return
	}

	withholdingGBP := decimal.Zero
	if trx.Fees.IsPositive() {
		if converted, ok := calc.convert(trx.Fees, trx.Currency, trx); ok {
			withholdingGBP = converted
		}
	}

	key := fmt.Sprintf("%s|%s|%s", trx.Symbol, data.Day(trx.Date).Format("2006-01-02"), trx.Currency)
	record, ok := calc.dividends[key]
	if !ok {
		record = &DividendRecord{
			Date:           data.Day(trx.Date),
			Symbol:         trx.Symbol,
			Currency:       trx.Currency,
			Amount:         decimal.Zero,
			AmountGBP:      decimal.Zero,
			WithholdingGBP: decimal.Zero,
		}
		calc.dividends[key] = record
	}

	record.Amount = record.Amount.Add(trx.Amount)
	record.AmountGBP = record.AmountGBP.Add(amountGBP)
	record.WithholdingGBP = record.WithholdingGBP.Add(withholdingGBP)
}

func (calc *calculation) processInterest(trx *data.Transaction) {
	amountGBP, ok := calc.convert(trx.Amount, trx.Currency, trx)
	if !ok {
		return
	}

	month := time.Date(trx.Date.Year(), trx.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
	key := fmt.Sprintf("%s|%s|%s", trx.Broker, trx.Currency, month.Format("2006-01"))
	record, ok := calc.interest[key]
	if !ok {
		record = &InterestRecord{
			Broker:    trx.Broker,
			Currency:  trx.Currency,
			Month:     month,
			Amount:    decimal.Zero,
			AmountGBP: decimal.Zero,
		}
		calc.interest[key] = record
	}

	record.Amount = record.Amount.Add(trx.Amount)
	record.AmountGBP = record.AmountGBP.Add(amountGBP)
}

func (calc *calculation) dividendRecords() []*DividendRecord {
	records := make([]*DividendRecord, 0, len(calc.dividends))
	for _, record := range calc.dividends {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].Symbol < records[j].Symbol
	})
	return records
}

func (calc *calculation) interestRecords() []*InterestRecord {
	records := make([]*InterestRecord, 0, len(calc.interest))
	for _, record := range calc.interest {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Month.Equal(records[j].Month) {
			return records[i].Month.Before(records[j].Month)
		}
		if records[i].Broker != records[j].Broker {
			return records[i].Broker < records[j].Broker
		}
		return records[i].Currency < records[j].Currency
	})
	return records
}
