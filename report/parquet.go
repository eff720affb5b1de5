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
package report

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// disposalRow flattens one breakdown slice of a disposal for columnar export.
// Decimal columns serialize as strings to preserve full precision.
type disposalRow struct {
	EventDate         string `parquet:"name=event_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Symbol            string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Rule              string `parquet:"name=rule, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Quantity          string `parquet:"name=quantity, type=BYTE_ARRAY, convertedtype=UTF8"`
	AllocatedCost     string `parquet:"name=allocated_cost, type=BYTE_ARRAY, convertedtype=UTF8"`
	AllocatedProceeds string `parquet:"name=allocated_proceeds, type=BYTE_ARRAY, convertedtype=UTF8"`
	GainOrLoss        string `parquet:"name=gain_or_loss, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetFileName returns the canonical export name for the report.
func (rpt *Report) ParquetFileName() string {
	return fmt.Sprintf("%s.parquet", slug.Make(fmt.Sprintf("cgt-disposals-%s", rpt.TaxYear)))
}

// SaveParquet writes the disposal ledger, one row per match, to a parquet
// file.
func (rpt *Report) SaveParquet(fn string) error {
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(disposalRow), 4)
	if err != nil {
		log.Error().
			Str("OriginalError", err.Error()).
			Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	numRows := 0
	for _, disposal := range rpt.Disposals {
		for _, match := range disposal.Breakdown {
			row := &disposalRow{
				EventDate:         disposal.Date.Format("2006-01-02"),
				Symbol:            disposal.Symbol,
				Rule:              string(match.Rule),
				Quantity:          match.Quantity.String(),
				AllocatedCost:     match.AllocatedCost.String(),
				AllocatedProceeds: match.AllocatedProceeds.String(),
				GainOrLoss:        match.AllocatedProceeds.Sub(match.AllocatedCost).String(),
			}
			if err = pw.Write(row); err != nil {
				log.Error().
					Str("OriginalError", err.Error()).
					Str("EventDate", row.EventDate).Str("Symbol", row.Symbol).
					Msg("Parquet write failed for record")
			}
			numRows++
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("Parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", numRows).Msg("Parquet write finished")
	return nil
}
