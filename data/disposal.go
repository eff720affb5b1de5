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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type MatchRule string

const (
	MatchSameDay         MatchRule = "SameDay"
	MatchBedAndBreakfast MatchRule = "BedAndBreakfast"
	MatchSection104      MatchRule = "Section104"
)

// Match is one slice of a resolved disposal: how many shares a rule consumed
// and the cost and proceeds allocated to them.
type Match struct {
	Rule              MatchRule       `json:"rule" parquet:"name=rule, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Quantity          decimal.Decimal `json:"quantity" parquet:"name=quantity, type=BYTE_ARRAY, convertedtype=UTF8"`
	AllocatedCost     decimal.Decimal `json:"allocatedCost" parquet:"name=allocated_cost, type=BYTE_ARRAY, convertedtype=UTF8"`
	AllocatedProceeds decimal.Decimal `json:"allocatedProceeds" parquet:"name=allocated_proceeds, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Disposal is the per-disposal ledger entry. Breakdown quantities always sum
// to QuantityDisposed; any excess over the shares actually held is recorded as
// a ShortPosition instead.
type Disposal struct {
	Date             time.Time       `json:"date"`
	Symbol           string          `json:"symbol"`
	QuantityDisposed decimal.Decimal `json:"quantityDisposed"`
	GrossProceedsGBP decimal.Decimal `json:"grossProceedsGBP"`
	TotalCostGBP     decimal.Decimal `json:"totalCostGBP"`
	GainOrLoss       decimal.Decimal `json:"gainOrLoss"`
	Breakdown        []Match         `json:"breakdown"`

	// Source points back at the originating transaction.
	Source *Transaction `json:"-"`
}

func (d *Disposal) MarshalZerologObject(e *zerolog.Event) {
	e.Time("Date", d.Date)
	e.Str("Symbol", d.Symbol)
	e.Str("Quantity", d.QuantityDisposed.String())
	e.Str("Proceeds", d.GrossProceedsGBP.String())
	e.Str("Cost", d.TotalCostGBP.String())
	e.Str("GainOrLoss", d.GainOrLoss.String())
}

// ShortPosition records a disposal (or part of one) that exceeded the shares
// held. It carries its proportional share of proceeds but no gain or loss; the
// position is not a CGT event until covered.
type ShortPosition struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	ProceedsGBP decimal.Decimal `json:"proceedsGBP"`
}

// AuditEntry is one cost-basis mutation outside ordinary matching, e.g. the
// two sides of a spin-off or an ERI reduction.
type AuditEntry struct {
	Date   time.Time       `json:"date"`
	Kind   string          `json:"kind"`
	Symbol string          `json:"symbol"`
	Delta  decimal.Decimal `json:"delta"`
	Note   string          `json:"note,omitempty"`
}

const (
	AuditSpinOffReduction = "spinoff_reduction"
	AuditSpinOffAddition  = "spinoff_addition"
	AuditEriReduction     = "eri_reduction"
	AuditIsinMerge        = "isin_merge"
	AuditSplit            = "split"
)
