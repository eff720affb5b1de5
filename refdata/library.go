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
package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/penny-vault/pvcgt/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Library is the Postgres-backed reference-data store shared by calculations:
// exchange rates, initial prices, the ISIN map and the ERI snapshot.
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// NewFromDB connects to the reference library.
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, err
	}

	myLibrary := Library{
		DBUrl: dbURL,
		Pool:  pool,
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &myLibrary, nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	myLibrary.Pool.Close()
}

// InitialPrices loads all reference quotes from the library.
func (myLibrary *Library) InitialPrices(ctx context.Context) (*PriceService, error) {
	prices := []*InitialPrice{}
	if err := pgxscan.Select(ctx, myLibrary.Pool, &prices,
		`SELECT symbol, event_date, currency, price FROM initial_prices ORDER BY symbol, event_date`); err != nil {
		return nil, err
	}

	return NewPriceService(prices), nil
}

// IsinMap loads the known isin -> symbol associations from the library.
func (myLibrary *Library) IsinMap(ctx context.Context) (*IsinService, error) {
	rows := []*struct {
		ISIN   string `db:"isin"`
		Symbol string `db:"symbol"`
	}{}

	if err := pgxscan.Select(ctx, myLibrary.Pool, &rows,
		`SELECT isin, symbol FROM isin_symbols ORDER BY isin, symbol`); err != nil {
		return nil, err
	}

	svc := NewIsinService(nil)
	for _, row := range rows {
		svc.AddFromTransaction(row.ISIN, row.Symbol)
	}

	return svc, nil
}

// EriEntries loads the ERI snapshot from the library.
func (myLibrary *Library) EriEntries(ctx context.Context) (*EriTable, error) {
	entries := []*data.EriEntry{}
	if err := pgxscan.Select(ctx, myLibrary.Pool, &entries,
		`SELECT isin, period_end_date, currency, amount_per_share FROM eri_entries ORDER BY period_end_date`); err != nil {
		return nil, err
	}

	return NewEriTable(entries), nil
}

// NumRates returns the count of daily exchange rates in the library
func (myLibrary *Library) NumRates(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM fx_rates").Scan(&count)
	return count, err
}

// NumPrices returns the count of initial prices in the library
func (myLibrary *Library) NumPrices(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM initial_prices").Scan(&count)
	return count, err
}

// NumEriEntries returns the count of ERI entries in the library
func (myLibrary *Library) NumEriEntries(ctx context.Context) (int, error) {
	count := 0
	err := myLibrary.Pool.QueryRow(ctx, "SELECT count(*) FROM eri_entries").Scan(&count)
	return count, err
}

// LastRateDate returns the most recent exchange-rate date in the library
func (myLibrary *Library) LastRateDate(ctx context.Context) (time.Time, error) {
	var lastDate time.Time
	err := myLibrary.Pool.QueryRow(ctx,
		"SELECT coalesce(max(event_date), '0001-01-01'::timestamp) FROM fx_rates").Scan(&lastDate)
	if err != nil {
		return time.Time{}, err
	}

	return lastDate, nil
}

// Summary returns a description of the reference library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Reference Library\n")
	builder.WriteString("## Details\n\n")
	builder.WriteString(fmt.Sprintf("Database: %s\n\n", myLibrary.DBUrl))

	numRates, err := myLibrary.NumRates(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Exchange Rates: %d\n", numRates)); err != nil {
		return "", err
	}

	numPrices, err := myLibrary.NumPrices(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Initial Prices: %d\n", numPrices)); err != nil {
		return "", err
	}

	numEri, err := myLibrary.NumEriEntries(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * ERI Entries: %d\n\n", numEri)); err != nil {
		return "", err
	}

	lastRate, err := myLibrary.LastRateDate(ctx)
	if err != nil {
		return "", err
	}

	if lastRate.Equal(time.Time{}) {
		builder.WriteString("Rates Updated: Never\n\n")
	} else {
		age := timeago.English.Format(lastRate)
		builder.WriteString(fmt.Sprintf("Rates Updated: %s (%s)\n\n", age, lastRate.Local().Format("01/02/2006")))
	}

	return builder.String(), nil
}
