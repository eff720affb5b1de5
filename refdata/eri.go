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
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvcgt/data"
)

// EriTable is the bulk snapshot of excess-reported-income entries loaded at
// engine construction, ordered by period end date.
type EriTable struct {
	entries []*data.EriEntry
}

// NewEriTable builds a table from entries in any order.
func NewEriTable(entries []*data.EriEntry) *EriTable {
	sorted := make([]*data.EriEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEndDate.Before(sorted[j].PeriodEndDate)
	})
	return &EriTable{entries: sorted}
}

// LoadEriCSV reads an ERI snapshot from a CSV file.
func LoadEriCSV(fn string) (*EriTable, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	entries := []*data.EriEntry{}
	if err := gocsv.UnmarshalFile(fh, &entries); err != nil {
		return nil, err
	}

	return NewEriTable(entries), nil
}

// Entries returns all entries in period-end order.
func (table *EriTable) Entries() []*data.EriEntry {
	return table.entries
}
