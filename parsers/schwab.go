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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvcgt/data"
	"github.com/rs/zerolog/log"
)

// Schwab parses the Individual-account history export. All cash figures are
// USD.
type Schwab struct{}

type schwabRow struct {
	Date        string `csv:"Date"`
	Action      string `csv:"Action"`
	Symbol      string `csv:"Symbol"`
	Description string `csv:"Description"`
	Quantity    string `csv:"Quantity"`
	Price       string `csv:"Price"`
	Fees        string `csv:"Fees & Comm"`
	Amount      string `csv:"Amount"`
}

func (schwab *Schwab) Name() string {
	return "Schwab Individual"
}

func (schwab *Schwab) Parse(fn string) ([]*data.Transaction, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows := []*schwabRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	transactions := make([]*data.Transaction, 0, len(rows))
	for _, row := range rows {
		trx, err := schwab.normalize(row)
		if err != nil {
			log.Error().Err(err).Str("Action", row.Action).Str("DateStr", row.Date).
				Msg("skipping unparseable schwab row")
			continue
		}
		if trx != nil {
			transactions = append(transactions, trx)
		}
	}

	return transactions, nil
}

func (schwab *Schwab) normalize(row *schwabRow) (*data.Transaction, error) {
	// Schwab dates occasionally carry an "as of" suffix
	dateStr := row.Date
	if idx := strings.Index(dateStr, " as of "); idx >= 0 {
		dateStr = dateStr[idx+len(" as of "):]
	}

	eventDate, err := time.Parse("01/02/2006", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRow, err.Error())
	}

	action, ok := schwabActions[row.Action]
	if !ok {
		log.Debug().Str("Action", row.Action).Msg("ignoring schwab action with no CGT effect")
		return nil, nil
	}

	quantity, err := parseMoney(row.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q", ErrBadRow, row.Quantity)
	}

	price, err := parseMoney(row.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ErrBadRow, row.Price)
	}

	fees, err := parseMoney(row.Fees)
	if err != nil {
		return nil, fmt.Errorf("%w: fees %q", ErrBadRow, row.Fees)
	}

	amount, err := parseMoney(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", ErrBadRow, row.Amount)
	}

	// Schwab's amount column is net of fees and commissions; the canonical
	// record carries gross consideration with fees separate.
	if action == data.Buy || action == data.Sell || action == data.Reinvest {
		amount = amount.Add(fees.Abs())
	}

	return &data.Transaction{
		Date:        data.Day(eventDate),
		Action:      action,
		Symbol:      row.Symbol,
		Description: row.Description,
		Quantity:    quantity.Abs(),
		Price:       price,
		Fees:        fees.Abs(),
		Amount:      amount,
		Currency:    "USD",
		Broker:      "Charles Schwab",
	}, nil
}

var schwabActions = map[string]data.ActionType{
	"Buy":                 data.Buy,
	"Sell":                data.Sell,
	"Reinvest Shares":     data.Reinvest,
	"Reinvest Dividend":   data.Dividend,
	"Qualified Dividend":  data.Dividend,
	"Cash Dividend":       data.Dividend,
	"Special Qual Div":    data.Dividend,
	"Non-Qualified Div":   data.Dividend,
	"Credit Interest":     data.Interest,
	"Bank Interest":       data.Interest,
	"Wire Funds":          data.WireFunds,
	"Wire Funds Received": data.WireFunds,
	"Stock Plan Activity": data.StockActivity,
	"Stock Split":         data.Split,
	"NRA Tax Adj":         data.Tax,
	"Foreign Tax Paid":    data.Tax,
	"Service Fee":         data.Fee,
	"Misc Cash Entry":     data.Fee,
	"Journal":             data.Transfer,
	"Security Transfer":   data.Transfer,
	"Spin-off":            data.SpinOff,
}

// SchwabAwards parses the Equity Award Center export: vest events arrive as
// deposits with a fair-market value and no cash movement.
type SchwabAwards struct{}

type schwabAwardsRow struct {
	Date             string `csv:"Date"`
	Action           string `csv:"Action"`
	Symbol           string `csv:"Symbol"`
	Description      string `csv:"Description"`
	Quantity         string `csv:"Quantity"`
	FairMarketValue  string `csv:"FairMarketValuePrice"`
	NetSharesDeposit string `csv:"NetSharesDeposited"`
}

func (awards *SchwabAwards) Name() string {
	return "Schwab Equity Awards"
}

func (awards *SchwabAwards) Parse(fn string) ([]*data.Transaction, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows := []*schwabAwardsRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	transactions := make([]*data.Transaction, 0, len(rows))
	for _, row := range rows {
		if row.Action != "Deposit" && row.Action != "Lapse" {
			continue
		}

		eventDate, err := time.Parse("01/02/2006", row.Date)
		if err != nil {
			log.Error().Err(err).Str("DateStr", row.Date).Msg("skipping unparseable award row")
			continue
		}

		quantityStr := row.NetSharesDeposit
		if quantityStr == "" {
			quantityStr = row.Quantity
		}

		quantity, err := parseMoney(quantityStr)
		if err != nil {
			log.Error().Err(err).Str("Quantity", quantityStr).Msg("skipping unparseable award row")
			continue
		}

		price, err := parseMoney(row.FairMarketValue)
		if err != nil {
			log.Error().Err(err).Str("Price", row.FairMarketValue).Msg("skipping unparseable award row")
			continue
		}

		transactions = append(transactions, &data.Transaction{
			Date:        data.Day(eventDate),
			Action:      data.StockActivity,
			Symbol:      row.Symbol,
			Description: row.Description,
			Quantity:    quantity.Abs(),
			Price:       price,
			Currency:    "USD",
			Broker:      "Charles Schwab",
		})
	}

	return transactions, nil
}
