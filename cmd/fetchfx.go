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
package cmd

import (
	"context"
	"time"

	"github.com/penny-vault/pvcgt/fx"
	"github.com/penny-vault/pvcgt/refdata"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// fetchFxCmd represents the fetch-fx command
var fetchFxCmd = &cobra.Command{
	Use:   "fetch-fx <currency...>",
	Short: "Download daily GBP exchange rates into the reference library",
	Long: `The fetch-fx sub-command downloads daily exchange rates for the requested
currencies over the configured date range and upserts them into the fx_rates
table of the reference library. Rates are stored as GBP per unit of foreign
currency.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myLibrary, err := refdata.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to reference library")
		}
		defer myLibrary.Close()

		begin, err := time.Parse("2006-01-02", viper.GetString("fx.begin"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse begin date")
		}

		end, err := time.Parse("2006-01-02", viper.GetString("fx.end"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse end date")
		}

		rates, err := fx.FetchRates(ctx, args, begin, end)
		if err != nil {
			log.Fatal().Err(err).Msg("could not download exchange rates")
		}

		conn, err := myLibrary.Pool.Acquire(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not acquire database connection")
		}
		defer conn.Release()

		for _, rate := range rates {
			if err := rate.SaveDB(ctx, conn); err != nil {
				log.Error().Err(err).Str("Currency", rate.Currency).
					Time("EventDate", rate.EventDate).Msg("could not save rate")
			}
		}

		log.Info().Int("NumRates", len(rates)).Msg("saved exchange rates to library")
	},
}

func init() {
	rootCmd.AddCommand(fetchFxCmd)

	fetchFxCmd.Flags().String("begin", time.Now().AddDate(-1, 0, 0).Format("2006-01-02"), "first date to download")
	if err := viper.BindPFlag("fx.begin", fetchFxCmd.Flags().Lookup("begin")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for begin failed")
	}

	fetchFxCmd.Flags().String("end", time.Now().Format("2006-01-02"), "last date to download")
	if err := viper.BindPFlag("fx.end", fetchFxCmd.Flags().Lookup("end")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for end failed")
	}
}
