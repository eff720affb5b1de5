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
	"github.com/shopspring/decimal"
)

var _ = Describe("Matching engine", func() {
	var (
		ctx       context.Context
		cgtEngine *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		cgtEngine = engine.New(gbpOnly(), data.TaxYear(2023))
	})

	run := func(transactions ...*data.Transaction) *engine.Result {
		store := engine.NewStore(transactions)
		result, err := cgtEngine.CalculateCapitalGain(ctx, store)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	totalGain := func(result *engine.Result) decimal.Decimal {
		total := decimal.Zero
		for _, disposal := range result.Disposals {
			total = total.Add(disposal.GainOrLoss)
		}
		return total
	}

	findPosition := func(result *engine.Result, symbol string) (string, string) {
		for _, pos := range result.Portfolio {
			if pos.Symbol == symbol {
				return pos.Quantity.String(), pos.Amount.StringFixedBank(2)
			}
		}
		return "", ""
	}

	Context("same-day rule", func() {
		It("matches a sale against the same day's purchases first", func() {
			result := run(
				buyTx("2023-06-15", "AAPL", "100", "100", "10"),
				sellTx("2023-06-15", "AAPL", "50", "150", "5"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			Expect(result.Disposals[0].GainOrLoss.StringFixedBank(2)).To(Equal("2490.00"))
			Expect(result.Disposals[0].Breakdown).To(HaveLen(1))
			Expect(result.Disposals[0].Breakdown[0].Rule).To(Equal(data.MatchSameDay))

			qty, amount := findPosition(result, "AAPL")
			Expect(qty).To(Equal("50"))
			Expect(amount).To(Equal("5005.00"))
		})

		It("applies same-day before bed-and-breakfast when both could match", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "200", "80", "16"),
				sellTx("2023-06-15", "AAPL", "200", "150", "30"),
				buyTx("2023-06-15", "AAPL", "60", "100", "6"),
				buyTx("2023-06-25", "AAPL", "90", "110", "9.90"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			disposal := result.Disposals[0]
			Expect(disposal.GainOrLoss.StringFixedBank(2)).To(Equal("10050.10"))

			Expect(disposal.Breakdown).To(HaveLen(3))
			Expect(disposal.Breakdown[0].Rule).To(Equal(data.MatchSameDay))
			Expect(disposal.Breakdown[0].Quantity.String()).To(Equal("60"))
			Expect(disposal.Breakdown[1].Rule).To(Equal(data.MatchBedAndBreakfast))
			Expect(disposal.Breakdown[1].Quantity.String()).To(Equal("90"))
			Expect(disposal.Breakdown[2].Rule).To(Equal(data.MatchSection104))
			Expect(disposal.Breakdown[2].Quantity.String()).To(Equal("50"))
		})
	})

	Context("bed-and-breakfast rule", func() {
		It("borrows basis from a purchase inside the 30 day window", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "100", "90", "9"),
				sellTx("2023-06-15", "AAPL", "100", "150", "10"),
				buyTx("2023-06-20", "AAPL", "50", "110", "5.50"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			Expect(result.Disposals[0].GainOrLoss.StringFixedBank(2)).To(Equal("4980.00"))

			qty, amount := findPosition(result, "AAPL")
			Expect(qty).To(Equal("50"))
			Expect(amount).To(Equal("4504.50"))
		})

		It("matches a purchase exactly 30 days after the disposal", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "100", "90", "9"),
				sellTx("2023-06-15", "AAPL", "100", "150", "10"),
				buyTx("2023-07-15", "AAPL", "100", "110", "11"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			disposal := result.Disposals[0]
			Expect(disposal.Breakdown).To(HaveLen(1))
			Expect(disposal.Breakdown[0].Rule).To(Equal(data.MatchBedAndBreakfast))
			// 14990 proceeds - 11011 replacement cost
			Expect(disposal.GainOrLoss.StringFixedBank(2)).To(Equal("3979.00"))
		})

		It("does not match a purchase 31 days after the disposal", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "100", "90", "9"),
				sellTx("2023-06-15", "AAPL", "100", "150", "10"),
				buyTx("2023-07-16", "AAPL", "100", "110", "11"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			disposal := result.Disposals[0]
			Expect(disposal.Breakdown).To(HaveLen(1))
			Expect(disposal.Breakdown[0].Rule).To(Equal(data.MatchSection104))
			Expect(disposal.GainOrLoss.StringFixedBank(2)).To(Equal("5981.00"))

			qty, amount := findPosition(result, "AAPL")
			Expect(qty).To(Equal("100"))
			Expect(amount).To(Equal("11011.00"))
		})

		It("hands shares to a later purchase's own same-day sale before an earlier pending disposal", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "100", "90", "0"),
				sellTx("2023-06-15", "AAPL", "100", "150", "0"),
				buyTx("2023-06-20", "AAPL", "40", "110", "0"),
				sellTx("2023-06-20", "AAPL", "40", "120", "0"),
			)

			Expect(result.Disposals).To(HaveLen(2))

			// the June 20 sale consumed its own day's purchase
			var sameDayGain, pendingBreakdown = decimal.Zero, data.MatchRule("")
			for _, disposal := range result.Disposals {
				if disposal.Date.Equal(day("2023-06-20")) {
					Expect(disposal.Breakdown[0].Rule).To(Equal(data.MatchSameDay))
					sameDayGain = disposal.GainOrLoss
				} else {
					pendingBreakdown = disposal.Breakdown[0].Rule
				}
			}
			Expect(sameDayGain.StringFixedBank(2)).To(Equal("400.00"))

			// nothing was left for the June 15 sale to borrow
			Expect(pendingBreakdown).To(Equal(data.MatchSection104))
		})
	})

	Context("section 104 pool", func() {
		It("pools purchases at weighted average cost", func() {
			result := run(
				buyTx("2023-05-15", "AAPL", "100", "100", "10"),
				buyTx("2023-06-15", "AAPL", "100", "120", "12"),
				sellTx("2023-09-15", "AAPL", "100", "150", "15"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			Expect(result.Disposals[0].GainOrLoss.StringFixedBank(2)).To(Equal("3974.00"))

			qty, amount := findPosition(result, "AAPL")
			Expect(qty).To(Equal("100"))
			Expect(amount).To(Equal("11011.00"))
		})

		It("records a short position instead of failing when selling more than held", func() {
			result := run(
				buyTx("2023-05-15", "AAPL", "60", "100", "0"),
				sellTx("2023-09-15", "AAPL", "100", "150", "0"),
			)

			Expect(result.Disposals).To(HaveLen(1))
			disposal := result.Disposals[0]
			Expect(disposal.QuantityDisposed.String()).To(Equal("60"))
			Expect(disposal.GainOrLoss.StringFixedBank(2)).To(Equal("3000.00"))

			Expect(result.Shorts).To(HaveLen(1))
			Expect(result.Shorts[0].Quantity.String()).To(Equal("40"))
			Expect(result.Shorts[0].ProceedsGBP.StringFixedBank(2)).To(Equal("6000.00"))
			Expect(result.Errors).To(BeEmpty())
		})
	})

	Context("invariants", func() {
		It("resolves every disposed share through exactly one rule", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "200", "80", "16"),
				sellTx("2023-06-15", "AAPL", "200", "150", "30"),
				buyTx("2023-06-15", "AAPL", "60", "100", "6"),
				buyTx("2023-06-25", "AAPL", "90", "110", "9.90"),
			)

			for _, disposal := range result.Disposals {
				total := decimal.Zero
				for _, match := range disposal.Breakdown {
					total = total.Add(match.Quantity)
				}
				Expect(total.Equal(disposal.QuantityDisposed)).To(BeTrue())
			}
		})

		It("is invariant to insertion order of same-day purchases", func() {
			first := run(
				buyTx("2023-06-15", "AAPL", "60", "100", "6"),
				buyTx("2023-06-15", "AAPL", "40", "110", "4"),
				sellTx("2023-06-15", "AAPL", "80", "150", "8"),
			)

			second := run(
				buyTx("2023-06-15", "AAPL", "40", "110", "4"),
				buyTx("2023-06-15", "AAPL", "60", "100", "6"),
				sellTx("2023-06-15", "AAPL", "80", "150", "8"),
			)

			Expect(totalGain(first).String()).To(Equal(totalGain(second).String()))

			qtyA, amountA := findPosition(first, "AAPL")
			qtyB, amountB := findPosition(second, "AAPL")
			Expect(qtyA).To(Equal(qtyB))
			Expect(amountA).To(Equal(amountB))
		})

		It("rejects zero-quantity disposals", func() {
			result := run(
				buyTx("2023-05-01", "AAPL", "100", "90", "0"),
				sellTx("2023-06-15", "AAPL", "0", "150", "0"),
			)

			Expect(result.Disposals).To(BeEmpty())
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Kind).To(Equal(engine.IssueParsing))
		})

		It("produces an empty report for empty input", func() {
			result := run()
			Expect(result.Disposals).To(BeEmpty())
			Expect(result.Portfolio).To(BeEmpty())
			Expect(result.Errors).To(BeEmpty())
		})
	})

	Context("cancellation", func() {
		It("discards partial output when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()

			store := engine.NewStore([]*data.Transaction{
				buyTx("2023-05-01", "AAPL", "100", "90", "0"),
			})

			result, err := cgtEngine.CalculateCapitalGain(cancelled, store)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result).To(BeNil())
		})
	})

	Context("idempotence", func() {
		It("yields identical gains when run twice over the same input", func() {
			transactions := []*data.Transaction{
				buyTx("2023-05-01", "AAPL", "100", "90", "9"),
				sellTx("2023-06-15", "AAPL", "100", "150", "10"),
				buyTx("2023-06-20", "AAPL", "50", "110", "5.50"),
			}

			first := run(transactions...)
			second := run(transactions...)

			Expect(totalGain(first).String()).To(Equal(totalGain(second).String()))
		})
	})
})
