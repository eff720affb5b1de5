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
	"strings"

	"github.com/alphadose/haxmap"
)

// IsinService maps ISINs to the set of ticker symbols observed trading under
// them. A security that changes ticker keeps its ISIN, so two symbols sharing
// an ISIN are the same holding. The map is safe for concurrent use; engines
// running in parallel share one instance and learn mappings at runtime.
type IsinService struct {
	symbols *haxmap.Map[string, string]
}

// NewIsinService creates a service seeded with known isin -> symbols pairs.
func NewIsinService(known map[string][]string) *IsinService {
	svc := &IsinService{
		symbols: haxmap.New[string, string](),
	}
	for isin, tickers := range known {
		for _, ticker := range tickers {
			svc.AddFromTransaction(isin, ticker)
		}
	}
	return svc
}

// Symbols returns all tickers known to trade under the ISIN.
func (svc *IsinService) Symbols(isin string) []string {
	joined, ok := svc.symbols.Get(isin)
	if !ok || joined == "" {
		return nil
	}
	return strings.Split(joined, "|")
}

// AddFromTransaction records a ticker observed trading under an ISIN.
func (svc *IsinService) AddFromTransaction(isin string, symbol string) {
	if isin == "" || symbol == "" {
		return
	}

	for {
		joined, _ := svc.symbols.Get(isin)
		for _, existing := range strings.Split(joined, "|") {
			if existing == symbol {
				return
			}
		}

		updated := symbol
		if joined != "" {
			updated = joined + "|" + symbol
		}

		if joined == "" {
			if _, loaded := svc.symbols.GetOrSet(isin, updated); !loaded {
				return
			}
		} else if svc.symbols.CompareAndSwap(isin, joined, updated) {
			return
		}
	}
}
