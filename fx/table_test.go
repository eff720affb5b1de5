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
package fx_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvcgt/fx"
	"github.com/shopspring/decimal"
)

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	Expect(err).NotTo(HaveOccurred())
	return parsed
}

func dec(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	Expect(err).NotTo(HaveOccurred())
	return parsed
}

var _ = Describe("Rate table", func() {
	var table *fx.Table

	BeforeEach(func() {
		// 2023-06-16 is a Friday; the weekend has no quotes
		table = fx.NewTable([]*fx.Rate{
			{Currency: "USD", EventDate: day("2023-06-16"), Rate: dec("0.79")},
			{Currency: "USD", EventDate: day("2023-06-19"), Rate: dec("0.8")},
		})
	})

	It("always returns 1 for GBP", func() {
		rate, err := table.Rate("GBP", day("1999-01-01"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rate.String()).To(Equal("1"))
	})

	It("returns the exact-date quote when available", func() {
		rate, err := table.Rate("USD", day("2023-06-19"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rate.String()).To(Equal("0.8"))
	})

	It("falls back to the nearest earlier quote over a weekend", func() {
		rate, err := table.Rate("USD", day("2023-06-18"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rate.String()).To(Equal("0.79"))
	})

	It("refuses to walk back more than seven days", func() {
		_, err := table.Rate("USD", day("2023-06-26"))
		Expect(err).NotTo(HaveOccurred())

		_, err = table.Rate("USD", day("2023-06-27"))
		Expect(err).To(MatchError(fx.ErrRateNotFound))
	})

	It("errors for unknown currencies", func() {
		_, err := table.Rate("JPY", day("2023-06-19"))
		Expect(err).To(MatchError(fx.ErrRateNotFound))
	})

	It("converts amounts at the date's rate", func() {
		converted, err := fx.Convert(table, dec("100"), "USD", day("2023-06-19"))
		Expect(err).NotTo(HaveOccurred())
		Expect(converted.String()).To(Equal("80"))
	})
})

var _ = Describe("CSV loader", func() {
	It("reads currency, date and rate columns", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "rates.csv")
		csv := "currency,date,rate\nUSD,2023-06-16,0.79\nEUR,2023-06-16,0.85\n"
		Expect(os.WriteFile(fn, []byte(csv), 0644)).To(Succeed())

		table, err := fx.LoadCSV(fn)
		Expect(err).NotTo(HaveOccurred())

		rate, err := table.Rate("EUR", day("2023-06-16"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rate.String()).To(Equal("0.85"))
	})
})
