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
package fx

import (
	"errors"
	"fmt"
	"time"

	"github.com/penny-vault/pvcgt/data"
	"github.com/shopspring/decimal"
)

var (
	ErrRateNotFound = errors.New("no exchange rate available")
)

// maximum number of days to walk back when the exact date has no quote
const fallbackWindow = 7

// Service resolves a (currency, date) pair to the GBP value of one unit of
// the currency.
type Service interface {
	Rate(currency string, date time.Time) (decimal.Decimal, error)
}

// Rate is one daily GBP quote for a foreign currency.
type Rate struct {
	Currency  string          `csv:"currency" db:"currency"`
	EventDate time.Time       `csv:"event_date" db:"event_date"`
	Rate      decimal.Decimal `csv:"rate" db:"rate"`
}

// Table is an immutable in-memory rate table. GBP always resolves to 1;
// other currencies fall back to the nearest earlier date within a bounded
// window when the requested day has no quote (weekends, bank holidays).
type Table struct {
	rates map[string]map[time.Time]decimal.Decimal
}

// NewTable builds a rate table from daily quotes.
func NewTable(rates []*Rate) *Table {
	table := &Table{
		rates: make(map[string]map[time.Time]decimal.Decimal),
	}
	for _, rate := range rates {
		byDate, ok := table.rates[rate.Currency]
		if !ok {
			byDate = make(map[time.Time]decimal.Decimal)
			table.rates[rate.Currency] = byDate
		}
		byDate[data.Day(rate.EventDate)] = rate.Rate
	}
	return table
}

// Rate returns the GBP value of one unit of currency on the given date.
func (table *Table) Rate(currency string, date time.Time) (decimal.Decimal, error) {
	if currency == "GBP" {
		return decimal.NewFromInt(1), nil
	}

	byDate, ok := table.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRateNotFound, currency)
	}

	day := data.Day(date)
	for ii := 0; ii <= fallbackWindow; ii++ {
		if rate, ok := byDate[day.AddDate(0, 0, -ii)]; ok {
			return rate, nil
		}
	}

	return decimal.Zero, fmt.Errorf("%w: %s on %s", ErrRateNotFound, currency, day.Format("2006-01-02"))
}

// Convert returns amount expressed in GBP at the date's rate.
func Convert(svc Service, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, error) {
	rate, err := svc.Rate(currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
