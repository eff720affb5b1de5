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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// LoadDB reads the complete daily rate table from the reference library.
func LoadDB(ctx context.Context, pool *pgxpool.Pool) (*Table, error) {
	rates := []*Rate{}
	if err := pgxscan.Select(ctx, pool, &rates,
		`SELECT currency, event_date, rate FROM fx_rates ORDER BY currency, event_date`); err != nil {
		return nil, err
	}

	return NewTable(rates), nil
}

// SaveDB upserts a daily rate into the reference library.
func (rate *Rate) SaveDB(ctx context.Context, dbConn *pgxpool.Conn) error {
	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("error committing fx rate transaction to database")
		}
	}()

	sql := `INSERT INTO fx_rates (
		"currency",
		"event_date",
		"rate"
	) VALUES (
		$1, $2, $3
	) ON CONFLICT ON CONSTRAINT fx_rates_pkey DO UPDATE SET
		rate = EXCLUDED.rate`

	_, err = tx.Exec(ctx, sql, rate.Currency, rate.EventDate, rate.Rate)
	if err != nil {
		log.Error().Err(err).Str("Currency", rate.Currency).Msg("save fx rate to DB failed")
		return err
	}

	return nil
}
