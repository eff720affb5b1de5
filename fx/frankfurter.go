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
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const FRANKFURTER_SERIES_URL string = "https://api.frankfurter.dev/v1"

type frankfurterResponse struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
}

func rateLimit() *rate.Limiter {
	dur := time.Second / 5
	frankfurterRate := rate.Every(dur)
	return rate.NewLimiter(frankfurterRate, 2)
}

// FetchRates downloads daily GBP rates for the requested currencies over the
// given date range. The API quotes foreign currency per GBP; rates are
// inverted on ingest so the table stores GBP per unit of foreign currency.
func FetchRates(ctx context.Context, currencies []string, begin, end time.Time) ([]*Rate, error) {
	rateLimiter := rateLimit()
	rates := make([]*Rate, 0, len(currencies)*365)

	client := resty.New()
	for _, currency := range currencies {
		if err := rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var response frankfurterResponse
		url := fmt.Sprintf("%s/%s..%s", FRANKFURTER_SERIES_URL, begin.Format("2006-01-02"), end.Format("2006-01-02"))
		resp, err := client.R().
			SetQueryParam("base", "GBP").
			SetQueryParam("symbols", currency).
			SetResult(&response).
			Get(url)

		if err != nil {
			log.Error().Err(err).Str("Currency", currency).Msg("downloading exchange rates failed")
			return nil, err
		}

		if resp.StatusCode() >= 300 {
			log.Error().Int("StatusCode", resp.StatusCode()).Str("Currency", currency).
				Msg("downloading exchange rates returned error status code")
			return nil, fmt.Errorf("%w: status %d", ErrRateNotFound, resp.StatusCode())
		}

		for dateStr, quote := range response.Rates {
			eventDate, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				log.Error().Err(err).Str("DateStr", dateStr).Msg("parsing rate date failed")
				continue
			}

			perGBP, ok := quote[currency]
			if !ok || perGBP == 0 {
				continue
			}

			rates = append(rates, &Rate{
				Currency:  currency,
				EventDate: eventDate,
				Rate:      decimal.NewFromInt(1).Div(decimal.NewFromFloat(perGBP)),
			})
		}

		log.Info().Str("Currency", currency).Int("NumRates", len(rates)).Msg("fetched exchange rates")
	}

	return rates, nil
}
