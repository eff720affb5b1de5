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
package refdata

import (
	"time"

	"github.com/penny-vault/pvcgt/data"
	"github.com/shopspring/decimal"
)

// InitialPrice is one historical reference quote used to value stock-activity
// rows that carry no price of their own (e.g. vested awards).
type InitialPrice struct {
	Symbol    string          `csv:"symbol" db:"symbol"`
	EventDate time.Time       `csv:"event_date" db:"event_date"`
	Currency  string          `csv:"currency" db:"currency"`
	Price     decimal.Decimal `csv:"price" db:"price"`
}

// PriceService answers historical reference-price queries.
type PriceService struct {
	prices map[string]map[time.Time]*InitialPrice
}

// NewPriceService builds a lookup over the supplied quotes.
func NewPriceService(prices []*InitialPrice) *PriceService {
	svc := &PriceService{
		prices: make(map[string]map[time.Time]*InitialPrice),
	}
	for _, price := range prices {
		byDate, ok := svc.prices[price.Symbol]
		if !ok {
			byDate = make(map[time.Time]*InitialPrice)
			svc.prices[price.Symbol] = byDate
		}
		byDate[data.Day(price.EventDate)] = price
	}
	return svc
}

// Price returns the reference quote for symbol on date, or nil when no quote
// is known.
func (svc *PriceService) Price(symbol string, date time.Time) *InitialPrice {
	byDate, ok := svc.prices[symbol]
	if !ok {
		return nil
	}
	return byDate[data.Day(date)]
}
