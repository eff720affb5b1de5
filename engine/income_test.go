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
	"github.com/penny-vault/pvcgt/fx"
)

var _ = Describe("Income aggregation", func() {
	var (
		ctx       context.Context
		cgtEngine *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()

		rates := []*fx.Rate{
			{Currency: "USD", EventDate: day("2023-06-01"), Rate: dec("0.8")},
			{Currency: "USD", EventDate: day("2023-06-15"), Rate: dec("0.8")},
			{Currency: "USD", EventDate: day("2023-06-30"), Rate: dec("0.8")},
		}
		cgtEngine = engine.New(fx.NewTable(rates), data.TaxYear(2023))
	})

	dividend := func(date string, symbol string, amount string, withholding string) *data.Transaction {
		return &data.Transaction{
			Date:     day(date),
			Action:   data.Dividend,
			Symbol:   symbol,
			Amount:   dec(amount),
			Fees:     dec(withholding),
			Currency: "USD",
			Broker:   "Charles Schwab",
		}
	}

	interest := func(date string, amount string) *data.Transaction {
		return &data.Transaction{
			Date:     day(date),
			Action:   data.Interest,
			Amount:   dec(amount),
			Currency: "USD",
			Broker:   "Charles Schwab",
		}
	}

	It("sums dividend rows per symbol and date, treating fees as withholding", func() {
		store := engine.NewStore([]*data.Transaction{
			dividend("2023-06-15", "AAPL", "70", "10.5"),
			dividend("2023-06-15", "AAPL", "30", "4.5"),
			dividend("2023-06-15", "MSFT", "50", "0"),
		})

		result, err := cgtEngine.CalculateCapitalGain(ctx, store)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Dividends).To(HaveLen(2))

		for _, record := range result.Dividends {
			switch record.Symbol {
			case "AAPL":
				Expect(record.Amount.String()).To(Equal("100"))
				Expect(record.AmountGBP.StringFixedBank(2)).To(Equal("80.00"))
				Expect(record.WithholdingGBP.StringFixedBank(2)).To(Equal("12.00"))
			case "MSFT":
				Expect(record.AmountGBP.StringFixedBank(2)).To(Equal("40.00"))
			}
		}
	})

	It("groups interest by broker, currency and calendar month", func() {
		store := engine.NewStore([]*data.Transaction{
			interest("2023-06-01", "5"),
			interest("2023-06-30", "7"),
		})

		result, err := cgtEngine.CalculateCapitalGain(ctx, store)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Interest).To(HaveLen(1))

		record := result.Interest[0]
		Expect(record.Broker).To(Equal("Charles Schwab"))
		Expect(record.Month.Format("2006-01")).To(Equal("2023-06"))
		Expect(record.Amount.String()).To(Equal("12"))
		Expect(record.AmountGBP.StringFixedBank(2)).To(Equal("9.60"))
	})

	It("converts each row at its own date and accumulates account fees", func() {
		fee := &data.Transaction{
			Date:     day("2023-06-15"),
			Action:   data.Fee,
			Amount:   dec("-25"),
			Currency: "USD",
		}

		store := engine.NewStore([]*data.Transaction{fee})

		result, err := cgtEngine.CalculateCapitalGain(ctx, store)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.FeesGBP.StringFixedBank(2)).To(Equal("20.00"))
	})
})
