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
package data

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ActionType string

const (
	Buy           ActionType = "BUY"
	Sell          ActionType = "SELL"
	Dividend      ActionType = "DIVIDEND"
	Interest      ActionType = "INTEREST"
	Transfer      ActionType = "TRANSFER"
	StockActivity ActionType = "STOCK_ACTIVITY"
	Fee           ActionType = "FEE"
	Tax           ActionType = "TAX"
	Split         ActionType = "SPLIT"
	SpinOff       ActionType = "SPIN_OFF"
	Reinvest      ActionType = "REINVEST"
	WireFunds     ActionType = "WIRE_FUNDS"
)

// Transaction is the canonical normalized record produced by the broker
// parsers. Dates are calendar days pinned to UTC midnight. Amount follows the
// cash-movement convention: acquisitions negative, disposals positive.
type Transaction struct {
	Date        time.Time       `json:"date" csv:"date" db:"event_date"`
	Action      ActionType      `json:"action" csv:"action" db:"action"`
	Symbol      string          `json:"symbol,omitempty" csv:"symbol" db:"symbol"`
	Description string          `json:"description,omitempty" csv:"description" db:"description"`
	Quantity    decimal.Decimal `json:"quantity" csv:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" csv:"price" db:"price"`
	Fees        decimal.Decimal `json:"fees" csv:"fees" db:"fees"`
	Amount      decimal.Decimal `json:"amount" csv:"amount" db:"amount"`
	Currency    string          `json:"currency" csv:"currency" db:"currency"`
	Broker      string          `json:"broker,omitempty" csv:"broker" db:"broker"`
	ISIN        string          `json:"isin,omitempty" csv:"isin" db:"isin"`
}

func (trx *Transaction) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Date", trx.Date)
	e.Str("Action", string(trx.Action))
	e.Str("Symbol", trx.Symbol)
	e.Str("Quantity", trx.Quantity.String())
	e.Str("Price", trx.Price.String())
	e.Str("Fees", trx.Fees.String())
	e.Str("Amount", trx.Amount.String())
	e.Str("Currency", trx.Currency)
}

// IsAcquisition reports whether the transaction adds shares to a holding.
func (trx *Transaction) IsAcquisition() bool {
	switch trx.Action {
	case Buy, Reinvest:
		return true
	case Transfer, StockActivity:
		return trx.Symbol != "" && trx.Quantity.IsPositive()
	}
	return false
}

// IsDisposal reports whether the transaction removes shares from a holding.
func (trx *Transaction) IsDisposal() bool {
	return trx.Action == Sell
}

// Day truncates a timestamp to its canonical UTC-midnight calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sortClass buckets transactions within a single day. HMRC treats the day as
// one aggregated event; the engine achieves equivalence by placing spin-offs
// first (their destination receipts need the buffered basis), then
// acquisitions, then disposals, with income and remaining corporate actions
// settling at the end of the day.
func sortClass(trx *Transaction) int {
	switch {
	case trx.Action == SpinOff:
		return 0
	case trx.IsAcquisition():
		return 1
	case trx.IsDisposal():
		return 2
	}
	return 3
}

// SortTransactions orders transactions by the canonical total order: date
// ascending, spin-offs before acquisitions before disposals before end-of-day
// events, insertion order preserved within a class.
func SortTransactions(transactions []*Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		a := Day(transactions[i].Date)
		b := Day(transactions[j].Date)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return sortClass(transactions[i]) < sortClass(transactions[j])
	})
}
