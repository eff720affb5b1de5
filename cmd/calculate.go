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
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/penny-vault/pvcgt/backblaze"
	"github.com/penny-vault/pvcgt/data"
	"github.com/penny-vault/pvcgt/engine"
	"github.com/penny-vault/pvcgt/fx"
	"github.com/penny-vault/pvcgt/parsers"
	"github.com/penny-vault/pvcgt/refdata"
	"github.com/penny-vault/pvcgt/report"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// spinOffConfig mirrors the [[spinoffs]] blocks of .pvcgt.toml
type spinOffConfig struct {
	Source     string  `mapstructure:"source"`
	Dest       string  `mapstructure:"dest"`
	Proportion float64 `mapstructure:"proportion"`
	Date       string  `mapstructure:"date"`
}

// calculateCmd represents the calculate command
var calculateCmd = &cobra.Command{
	Use:   "calculate [statement-file...]",
	Short: "Compute capital gains over the given broker statements",
	Long: `The calculate sub-command parses each statement file with the configured
format, merges the transactions into a single canonical event stream, runs the
share-matching engine and prints a per-tax-year report. Reference data is read
from the PostgreSQL library when db.url is configured, otherwise from local
CSV files.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		format := viper.GetString("statement_format")
		parser, ok := parsers.Map[format]
		if !ok {
			log.Fatal().Str("Format", format).Msg("unknown statement format")
		}

		store := engine.NewStore(nil)
		for _, fn := range args {
			transactions, err := parser.Parse(fn)
			if err != nil {
				log.Fatal().Err(err).Str("FileName", fn).Msg("could not parse statement file")
			}
			for _, trx := range transactions {
				store.Add(trx)
			}
		}

		log.Info().Int("NumTransactions", store.Len()).Str("Format", parser.Name()).
			Msg("loaded transactions")

		taxYear := data.TaxYear(viper.GetInt("tax_year"))
		allowance := decimal.NewFromFloat(viper.GetFloat64("annual_allowance"))

		opts := []engine.Option{engine.WithAnnualAllowance(allowance)}
		var fxSvc fx.Service

		if dbURL := viper.GetString("db.url"); dbURL != "" {
			myLibrary, err := refdata.NewFromDB(ctx, dbURL)
			if err != nil {
				log.Fatal().Err(err).Msg("could not connect to reference library")
			}
			defer myLibrary.Close()

			fxSvc, err = fx.LoadDB(ctx, myLibrary.Pool)
			if err != nil {
				log.Fatal().Err(err).Msg("could not load exchange rates")
			}

			isinSvc, err := myLibrary.IsinMap(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("could not load isin map")
			}
			opts = append(opts, engine.WithIsinService(isinSvc))

			priceSvc, err := myLibrary.InitialPrices(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("could not load initial prices")
			}
			opts = append(opts, engine.WithPriceService(priceSvc))

			eriTable, err := myLibrary.EriEntries(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("could not load ERI table")
			}
			opts = append(opts, engine.WithEriTable(eriTable))
		} else {
			fxCSV := viper.GetString("fx.csv")
			if fxCSV == "" {
				log.Fatal().Msg("no reference library configured; set db.url or fx.csv")
			}

			table, err := fx.LoadCSV(fxCSV)
			if err != nil {
				log.Fatal().Err(err).Str("FileName", fxCSV).Msg("could not load exchange rates")
			}
			fxSvc = table

			if eriCSV := viper.GetString("eri.csv"); eriCSV != "" {
				eriTable, err := refdata.LoadEriCSV(eriCSV)
				if err != nil {
					log.Fatal().Err(err).Str("FileName", eriCSV).Msg("could not load ERI table")
				}
				opts = append(opts, engine.WithEriTable(eriTable))
			}
		}

		if spinOffs := loadSpinOffs(); len(spinOffs) > 0 {
			opts = append(opts, engine.WithSpinOffs(spinOffs))
		}

		cgtEngine := engine.New(fxSvc, taxYear, opts...)
		result, err := cgtEngine.CalculateCapitalGain(ctx, store)
		if err != nil {
			log.Fatal().Err(err).Msg("calculation aborted")
		}

		rpt := report.Assemble(result)

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(120),
		)

		out, err := r.Render(rpt.Summary())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render report")
		}
		fmt.Print(out)

		banner := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		fmt.Println(banner.Render(fmt.Sprintf("Net gain/loss for %s: £%s (allowance £%s)",
			rpt.TaxYear, rpt.NetGainLoss.StringFixedBank(2), rpt.AnnualAllowance.StringFixedBank(2))))

		if jsonFN := viper.GetString("output.json"); jsonFN != "" {
			raw, err := rpt.JSON()
			if err != nil {
				log.Fatal().Err(err).Msg("could not serialize report")
			}
			if err := os.WriteFile(jsonFN, raw, 0644); err != nil {
				log.Fatal().Err(err).Str("FileName", jsonFN).Msg("could not write report")
			}
		}

		if viper.GetBool("output.parquet") {
			parquetFN := rpt.ParquetFileName()
			if err := rpt.SaveParquet(parquetFN); err != nil {
				log.Error().Err(err).Msg("failed writing parquet file")
			} else if viper.GetString("backblaze.application_id") != "" {
				year := fmt.Sprintf("%d", int(rpt.TaxYear))
				if err := backblaze.Upload(parquetFN, viper.GetString("backblaze.bucket"), year); err != nil {
					log.Error().Err(err).Msg("failed uploading parquet file to Backblaze")
				}
			}
		}
	},
}

// loadSpinOffs reads configured spin-off events from the config file.
func loadSpinOffs() []*data.SpinOffEvent {
	configs := []*spinOffConfig{}
	if err := viper.UnmarshalKey("spinoffs", &configs); err != nil {
		log.Fatal().Err(err).Msg("could not parse spinoffs configuration")
	}

	events := make([]*data.SpinOffEvent, 0, len(configs))
	for _, config := range configs {
		eventDate, err := time.Parse("2006-01-02", config.Date)
		if err != nil {
			log.Fatal().Err(err).Str("DateStr", config.Date).Msg("could not parse spin-off date")
		}
		events = append(events, &data.SpinOffEvent{
			SourceSymbol:   config.Source,
			DestSymbol:     config.Dest,
			CostProportion: decimal.NewFromFloat(config.Proportion),
			Date:           eventDate,
		})
	}

	return events
}

func init() {
	rootCmd.AddCommand(calculateCmd)

	calculateCmd.Flags().String("format", "canonical", "statement format (schwab, schwab-awards, morgan-stanley, canonical)")
	if err := viper.BindPFlag("statement_format", calculateCmd.Flags().Lookup("format")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for format failed")
	}

	calculateCmd.Flags().Int("tax-year", time.Now().Year()-1, "tax year to report (year containing 6 April)")
	if err := viper.BindPFlag("tax_year", calculateCmd.Flags().Lookup("tax-year")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for tax-year failed")
	}

	calculateCmd.Flags().Float64("allowance", 0, "annual exempt amount for the tax year")
	if err := viper.BindPFlag("annual_allowance", calculateCmd.Flags().Lookup("allowance")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for allowance failed")
	}

	calculateCmd.Flags().String("fx-csv", "", "CSV file with daily GBP exchange rates (offline mode)")
	if err := viper.BindPFlag("fx.csv", calculateCmd.Flags().Lookup("fx-csv")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for fx-csv failed")
	}

	calculateCmd.Flags().String("eri-csv", "", "CSV file with excess reported income entries (offline mode)")
	if err := viper.BindPFlag("eri.csv", calculateCmd.Flags().Lookup("eri-csv")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for eri-csv failed")
	}

	calculateCmd.Flags().String("json", "", "write the full report as JSON to the given file")
	if err := viper.BindPFlag("output.json", calculateCmd.Flags().Lookup("json")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for json failed")
	}

	calculateCmd.Flags().Bool("parquet", false, "export the disposal ledger as parquet")
	if err := viper.BindPFlag("output.parquet", calculateCmd.Flags().Lookup("parquet")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for parquet failed")
	}
}
