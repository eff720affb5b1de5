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
package engine_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvcgt/data"
	"github.com/penny-vault/pvcgt/engine"
	"github.com/penny-vault/pvcgt/refdata"
)

var _ = Describe("Corporate actions", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	position := func(result *engine.Result, symbol string) (string, string) {
		for _, pos := range result.Portfolio {
			if pos.Symbol == symbol {
				return pos.Quantity.String(), pos.Amount.StringFixedBank(2)
			}
		}
		return "", ""
	}

	Context("spin-offs", func() {
		It("apportions basis from source to destination", func() {
			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023),
				engine.WithSpinOffs([]*data.SpinOffEvent{
					{SourceSymbol: "MMM", DestSymbol: "SOLV", CostProportion: dec("0.25"), Date: day("2023-06-15")},
				}))

			receipt := &data.Transaction{
				Date:        day("2023-06-15"),
				Action:      data.StockActivity,
				Symbol:      "SOLV",
				Description: "SOLVENTUM CORP SPINOFF",
				Quantity:    dec("25"),
				Currency:    "GBP",
			}

			store := engine.NewStore([]*data.Transaction{
				buyTx("2023-01-15", "MMM", "100", "100", "10"),
				receipt,
			})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Disposals).To(BeEmpty())

			qty, amount := position(result, "MMM")
			Expect(qty).To(Equal("100"))
			Expect(amount).To(Equal("7507.50"))

			qty, amount = position(result, "SOLV")
			Expect(qty).To(Equal("25"))
			Expect(amount).To(Equal("2502.50"))

			Expect(result.Audit).To(HaveLen(2))
			Expect(result.Audit[0].Kind).To(Equal(data.AuditSpinOffReduction))
			Expect(result.Audit[1].Kind).To(Equal(data.AuditSpinOffAddition))
		})

		It("warns when the destination receipt never arrives", func() {
			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023),
				engine.WithSpinOffs([]*data.SpinOffEvent{
					{SourceSymbol: "MMM", DestSymbol: "SOLV", CostProportion: dec("0.25"), Date: day("2023-06-15")},
				}))

			store := engine.NewStore([]*data.Transaction{
				buyTx("2023-01-15", "MMM", "100", "100", "10"),
			})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Warnings).NotTo(BeEmpty())
			Expect(result.Warnings[0].Kind).To(Equal(engine.IssueSpinOffUnapplied))
		})
	})

	Context("excess reported income", func() {
		It("taxes the holder and reduces the pool's cost basis", func() {
			eriTable := refdata.NewEriTable([]*data.EriEntry{
				{ISIN: "IE00B3XXRP09", PeriodEndDate: day("2023-06-30"), Currency: "GBP", AmountPerShare: dec("0.5")},
			})

			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023), engine.WithEriTable(eriTable))

			fund := buyTx("2023-05-01", "VUSA", "100", "10", "0")
			fund.ISIN = "IE00B3XXRP09"

			store := engine.NewStore([]*data.Transaction{fund})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.EriIncome).To(HaveLen(1))
			Expect(result.EriIncome[0].AmountGBP.StringFixedBank(2)).To(Equal("50.00"))

			_, amount := position(result, "VUSA")
			Expect(amount).To(Equal("950.00"))
		})

		It("skips entries with no position and records a warning", func() {
			eriTable := refdata.NewEriTable([]*data.EriEntry{
				{ISIN: "IE00B3XXRP09", PeriodEndDate: day("2023-06-30"), Currency: "GBP", AmountPerShare: dec("0.5")},
			})

			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023), engine.WithEriTable(eriTable))

			store := engine.NewStore([]*data.Transaction{
				buyTx("2023-05-01", "AAPL", "100", "10", "0"),
			})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.EriIncome).To(BeEmpty())
			Expect(result.Warnings).NotTo(BeEmpty())
			Expect(result.Warnings[0].Kind).To(Equal(engine.IssueEriSkipped))
		})
	})

	Context("isin transitions", func() {
		It("merges pools when a second ticker acquires under a shared isin", func() {
			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023))

			oldTicker := buyTx("2023-01-10", "FB", "100", "50", "0")
			oldTicker.ISIN = "US30303M1027"
			newTicker := buyTx("2023-02-10", "META", "10", "60", "0")
			newTicker.ISIN = "US30303M1027"

			store := engine.NewStore([]*data.Transaction{oldTicker, newTicker})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())

			qty, amount := position(result, "META")
			Expect(qty).To(Equal("110"))
			Expect(amount).To(Equal("5600.00"))

			oldQty, _ := position(result, "FB")
			Expect(oldQty).To(Equal(""))
		})
	})

	Context("stock splits", func() {
		It("scales the pool quantity leaving basis unchanged", func() {
			cgtEngine := engine.New(gbpOnly(), data.TaxYear(2023))

			split := &data.Transaction{
				Date:     day("2023-06-01"),
				Action:   data.Split,
				Symbol:   "AAPL",
				Quantity: dec("4"),
				Currency: "GBP",
			}

			store := engine.NewStore([]*data.Transaction{
				buyTx("2023-05-01", "AAPL", "100", "100", "0"),
				split,
			})

			result, err := cgtEngine.CalculateCapitalGain(ctx, store)
			Expect(err).NotTo(HaveOccurred())

			qty, amount := position(result, "AAPL")
			Expect(qty).To(Equal("400"))
			Expect(amount).To(Equal("10000.00"))
		})
	})
})
