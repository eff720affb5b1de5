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
package parsers_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvcgt/data"
	"github.com/penny-vault/pvcgt/parsers"
)

func writeStatement(name string, contents string) string {
	fn := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(fn, []byte(contents), 0644)).To(Succeed())
	return fn
}

var _ = Describe("Schwab individual parser", func() {
	parser := &parsers.Schwab{}

	It("normalizes buys, sells and dividends", func() {
		fn := writeStatement("schwab.csv",
			`Date,Action,Symbol,Description,Quantity,Price,Fees & Comm,Amount
06/15/2023,Buy,AAPL,APPLE INC,100,$185.01,$0.65,"-$18,501.65"
06/20/2023,Sell,AAPL,APPLE INC,50,$187.00,$0.51,"$9,349.49"
06/30/2023,Qualified Dividend,AAPL,APPLE INC,,,,"$24.00"
07/03/2023,Wire Funds,,WIRED FUNDS RECEIVED,,,,"$5,000.00"
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(HaveLen(4))

		buy := transactions[0]
		Expect(buy.Action).To(Equal(data.Buy))
		Expect(buy.Symbol).To(Equal("AAPL"))
		Expect(buy.Quantity.String()).To(Equal("100"))
		Expect(buy.Price.String()).To(Equal("185.01"))
		Expect(buy.Fees.String()).To(Equal("0.65"))
		Expect(buy.Amount.String()).To(Equal("-18501"))
		Expect(buy.Currency).To(Equal("USD"))

		sell := transactions[1]
		Expect(sell.Action).To(Equal(data.Sell))
		Expect(sell.Amount.IsPositive()).To(BeTrue())

		dividend := transactions[2]
		Expect(dividend.Action).To(Equal(data.Dividend))
		Expect(dividend.Amount.String()).To(Equal("24"))

		wire := transactions[3]
		Expect(wire.Action).To(Equal(data.WireFunds))
	})

	It("handles as-of dates and parenthesized negatives", func() {
		fn := writeStatement("schwab.csv",
			`Date,Action,Symbol,Description,Quantity,Price,Fees & Comm,Amount
06/16/2023 as of 06/15/2023,NRA Tax Adj,AAPL,APPLE INC,,,,($3.60)
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(HaveLen(1))
		Expect(transactions[0].Action).To(Equal(data.Tax))
		Expect(transactions[0].Date.Format("2006-01-02")).To(Equal("2023-06-15"))
		Expect(transactions[0].Amount.String()).To(Equal("-3.6"))
	})

	It("skips actions with no CGT effect", func() {
		fn := writeStatement("schwab.csv",
			`Date,Action,Symbol,Description,Quantity,Price,Fees & Comm,Amount
06/15/2023,Margin Interest,,MARGIN INT,,,,-$1.23
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(BeEmpty())
	})
})

var _ = Describe("Schwab equity awards parser", func() {
	parser := &parsers.SchwabAwards{}

	It("turns vest deposits into stock activity", func() {
		fn := writeStatement("awards.csv",
			`Date,Action,Symbol,Description,Quantity,FairMarketValuePrice,NetSharesDeposited
05/25/2023,Deposit,GOOG,RS,100,$123.45,62
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(HaveLen(1))
		Expect(transactions[0].Action).To(Equal(data.StockActivity))
		Expect(transactions[0].Quantity.String()).To(Equal("62"))
		Expect(transactions[0].Price.String()).To(Equal("123.45"))
	})
})

var _ = Describe("Morgan Stanley parser", func() {
	parser := &parsers.MorganStanley{}

	It("turns releases into stock activity and sales into disposals", func() {
		fn := writeStatement("ms.csv",
			`Date,Plan,Type,Order Status,Symbol,Price,Quantity,Net Amount
15-Jun-2023,GSU,Release,Complete,GOOG,$120.00,50,
20-Jun-2023,GSU,Sale,Complete,GOOG,$125.00,50,"$6,230.00"
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(HaveLen(2))

		release := transactions[0]
		Expect(release.Action).To(Equal(data.StockActivity))
		Expect(release.Quantity.String()).To(Equal("50"))

		sale := transactions[1]
		Expect(sale.Action).To(Equal(data.Sell))
		// 6250 gross - 6230 net
		Expect(sale.Fees.String()).To(Equal("20"))
		Expect(sale.Amount.String()).To(Equal("6250"))
	})

	It("drops cancelled orders", func() {
		fn := writeStatement("ms.csv",
			`Date,Plan,Type,Order Status,Symbol,Price,Quantity,Net Amount
20-Jun-2023,GSU,Sale,Cancelled,GOOG,$125.00,50,"$6,230.00"
`)

		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(BeEmpty())
	})
})

var _ = Describe("Canonical parser", func() {
	It("round-trips normalized records", func() {
		fn := writeStatement("canonical.csv",
			`date,action,symbol,description,quantity,price,fees,amount,currency,broker,isin
2023-06-15T00:00:00Z,BUY,AAPL,,100,185.01,0.65,-18501.65,USD,Charles Schwab,US0378331005
`)

		parser := &parsers.Canonical{}
		transactions, err := parser.Parse(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(transactions).To(HaveLen(1))
		Expect(transactions[0].Action).To(Equal(data.Buy))
		Expect(transactions[0].ISIN).To(Equal("US0378331005"))
	})
})
