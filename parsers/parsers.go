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
	"errors"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/pvcgt/data"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownFormat = errors.New("unknown statement format")
	ErrBadRow        = errors.New("cannot parse statement row")
)

// Parser converts one broker's statement export into canonical transaction
// records, emitted in ingest order. The engine performs the canonical sort.
type Parser interface {
	Name() string
	Parse(fn string) ([]*data.Transaction, error)
}

// Map holds all registered statement parsers keyed by format name.
var Map = map[string]Parser{
	"schwab":         &Schwab{},
	"schwab-awards":  &SchwabAwards{},
	"morgan-stanley": &MorganStanley{},
	"canonical":      &Canonical{},
}

// Canonical reads transactions already in the normalized record format.
type Canonical struct{}

func (canonical *Canonical) Name() string {
	return "Canonical"
}

func (canonical *Canonical) Parse(fn string) ([]*data.Transaction, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	transactions := []*data.Transaction{}
	if err := gocsv.UnmarshalFile(fh, &transactions); err != nil {
		return nil, err
	}

	return transactions, nil
}

// parseMoney strips currency symbols, separators and parenthesized negation
// from statement money columns. An empty column is zero.
func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = strings.NewReplacer("$", "", "£", "", ",", "").Replace(cleaned)
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = cleaned[1:]
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}

	if negative {
		value = value.Neg()
	}
	return value, nil
}
