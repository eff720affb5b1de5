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
	"time"

	"github.com/shopspring/decimal"
)

// SpinOffEvent apportions CostProportion of the source pool's basis to the
// destination symbol's spin-off receipt.
type SpinOffEvent struct {
	SourceSymbol   string          `json:"sourceSymbol"`
	DestSymbol     string          `json:"destSymbol"`
	CostProportion decimal.Decimal `json:"costProportion"`
	Date           time.Time       `json:"date"`
}

// EriEntry is one reporting-fund excess-of-reported-income figure, applied to
// holders of the ISIN as of the period end date.
type EriEntry struct {
	ISIN           string          `json:"isin" csv:"isin" db:"isin"`
	PeriodEndDate  time.Time       `json:"periodEndDate" csv:"period_end_date" db:"period_end_date"`
	Currency       string          `json:"currency" csv:"currency" db:"currency"`
	AmountPerShare decimal.Decimal `json:"amountPerShare" csv:"amount_per_share" db:"amount_per_share"`
}
