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
package parsers

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvcgt/data"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MorganStanley parses StockPlan Connect release and withdrawal reports.
// Releases are vested shares arriving at fair market value; withdrawals are
// sales.
type MorganStanley struct{}

type morganStanleyRow struct {
	Date        string `csv:"Date"`
	Plan        string `csv:"Plan"`
	Type        string `csv:"Type"`
	OrderStatus string `csv:"Order Status"`
	Symbol      string `csv:"Symbol"`
	Price       string `csv:"Price"`
	Quantity    string `csv:"Quantity"`
	NetAmount   string `csv:"Net Amount"`
}

func (ms *MorganStanley) Name() string {
	return "Morgan Stanley StockPlan"
}

func (ms *MorganStanley) Parse(fn string) ([]*data.Transaction, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows := []*morganStanleyRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	transactions := make([]*data.Transaction, 0, len(rows))
	for _, row := range rows {
		if row.OrderStatus == "Cancelled" {
			continue
		}

		eventDate, err := time.Parse("02-Jan-2006", row.Date)
		if err != nil {
			log.Error().Err(err).Str("DateStr", row.Date).Msg("skipping unparseable morgan stanley row")
			continue
		}

		quantity, err := parseMoney(row.Quantity)
		if err != nil {
			log.Error().Err(err).Str("Quantity", row.Quantity).Msg("skipping unparseable morgan stanley row")
			continue
		}

		price, err := parseMoney(row.Price)
		if err != nil {
			log.Error().Err(err).Str("Price", row.Price).Msg("skipping unparseable morgan stanley row")
			continue
		}

		netAmount, err := parseMoney(row.NetAmount)
		if err != nil {
			log.Error().Err(err).Str("NetAmount", row.NetAmount).Msg("skipping unparseable morgan stanley row")
			continue
		}

		switch row.Type {
		case "Release":
			transactions = append(transactions, &data.Transaction{
				Date:        data.Day(eventDate),
				Action:      data.StockActivity,
				Symbol:      row.Symbol,
				Description: row.Plan,
				Quantity:    quantity.Abs(),
				Price:       price,
				Currency:    "USD",
				Broker:      "Morgan Stanley",
			})
		case "Sale", "Withdrawal":
			fees := decimal.Zero
			if !netAmount.IsZero() {
				gross := quantity.Abs().Mul(price)
				if gross.GreaterThan(netAmount.Abs()) {
					fees = gross.Sub(netAmount.Abs())
				}
			}
			transactions = append(transactions, &data.Transaction{
				Date:        data.Day(eventDate),
				Action:      data.Sell,
				Symbol:      row.Symbol,
				Description: row.Plan,
				Quantity:    quantity.Abs(),
				Price:       price,
				Fees:        fees,
				Amount:      netAmount.Abs().Add(fees),
				Currency:    "USD",
				Broker:      "Morgan Stanley",
			})
		default:
			log.Debug().Str("Type", row.Type).Msg("ignoring morgan stanley row with no CGT effect")
		}
	}

	return transactions, nil
}
