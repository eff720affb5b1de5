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
package fx

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type rateRow struct {
	Currency string `csv:"currency"`
	Date     string `csv:"date"`
	Rate     string `csv:"rate"`
}

// LoadCSV reads a daily rate table from a CSV file with currency, date and
// rate columns.
func LoadCSV(fn string) (*Table, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	rows := []*rateRow{}
	if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
		return nil, err
	}

	rates := make([]*Rate, 0, len(rows))
	for _, row := range rows {
		eventDate, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			log.Error().Err(err).Str("DateStr", row.Date).Msg("cannot parse rate date")
			continue
		}

		rate, err := decimal.NewFromString(row.Rate)
		if err != nil {
			log.Error().Err(err).Str("RateStr", row.Rate).Msg("cannot parse rate value")
			continue
		}

		rates = append(rates, &Rate{
			Currency:  row.Currency,
			EventDate: eventDate,
			Rate:      rate,
		})
	}

	return NewTable(rates), nil
}
