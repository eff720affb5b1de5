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
package report

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/penny-vault/pvcgt/data"
	"github.com/penny-vault/pvcgt/engine"
	"github.com/penny-vault/pvcgt/ledger"
	"github.com/shopspring/decimal"
)

// Report is the per-tax-year view over a calculation result. Decimals
// serialize at full precision; display rounding happens only at render time.
type Report struct {
	RunID           uuid.UUID       `json:"runId"`
	TaxYear         data.TaxYear    `json:"taxYear"`
	AnnualAllowance decimal.Decimal `json:"annualAllowance"`

	CapitalGain decimal.Decimal `json:"capitalGain"`
	CapitalLoss decimal.Decimal `json:"capitalLoss"`
	NetGainLoss decimal.Decimal `json:"netGainLoss"`

	Disposals []*data.Disposal      `json:"disposals"`
	Shorts    []*data.ShortPosition `json:"shortPositions,omitempty"`

	Portfolio []*ledger.Position `json:"portfolio"`

	Dividends []*engine.DividendRecord  `json:"dividends,omitempty"`
	Interest  []*engine.InterestRecord  `json:"interest,omitempty"`
	EriIncome []*engine.EriIncomeRecord `json:"eriIncome,omitempty"`

	CalculationLog []*engine.LogEntry `json:"calculationLog"`

	Errors   []*engine.Issue `json:"errors,omitempty"`
	Warnings []*engine.Issue `json:"warnings,omitempty"`
}

// Assemble filters a calculation result down to the disposals, income and
// log entries falling inside the result's tax year and totals the gains.
func Assemble(result *engine.Result) *Report {
	taxYear := result.TaxYear

	rpt := &Report{
		RunID:           result.RunID,
		TaxYear:         taxYear,
		AnnualAllowance: result.Allowance,
		CapitalGain:     decimal.Zero,
		CapitalLoss:     decimal.Zero,
		NetGainLoss:     decimal.Zero,
		Portfolio:       result.Portfolio,
		Errors:          result.Errors,
		Warnings:        result.Warnings,
	}

	for _, disposal := range result.Disposals {
		if !taxYear.Contains(disposal.Date) {
			continue
		}
		rpt.Disposals = append(rpt.Disposals, disposal)
		if disposal.GainOrLoss.IsNegative() {
			rpt.CapitalLoss = rpt.CapitalLoss.Add(disposal.GainOrLoss.Abs())
		} else {
			rpt.CapitalGain = rpt.CapitalGain.Add(disposal.GainOrLoss)
		}
	}
	rpt.NetGainLoss = rpt.CapitalGain.Sub(rpt.CapitalLoss)

	for _, short := range result.Shorts {
		if taxYear.Contains(short.Date) {
			rpt.Shorts = append(rpt.Shorts, short)
		}
	}

	for _, dividend := range result.Dividends {
		if taxYear.Contains(dividend.Date) {
			rpt.Dividends = append(rpt.Dividends, dividend)
		}
	}

	for _, interest := range result.Interest {
		if taxYear.Contains(interest.Month) {
			rpt.Interest = append(rpt.Interest, interest)
		}
	}

	for _, eri := range result.EriIncome {
		if taxYear.Contains(eri.Date) {
			rpt.EriIncome = append(rpt.EriIncome, eri)
		}
	}

	for _, entry := range result.CalculationLog {
		if taxYear.Contains(entry.Date) {
			rpt.CalculationLog = append(rpt.CalculationLog, entry)
		}
	}

	return rpt
}

// JSON serializes the report with full decimal precision.
func (rpt *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(rpt, "", "  ")
}
