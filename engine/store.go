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
package engine

import (
	"time"

	"github.com/penny-vault/pvcgt/data"
)

// Store is the time-ordered event log a calculation runs over. Transactions
// are inserted in ingest order and sorted once by the canonical total order;
// the stable sort preserves ingest order as the final tie-break.
type Store struct {
	transactions []*data.Transaction
	sorted       bool
}

// NewStore creates a store over the given transactions.
func NewStore(transactions []*data.Transaction) *Store {
	store := &Store{
		transactions: make([]*data.Transaction, len(transactions)),
	}
	copy(store.transactions, transactions)
	return store
}

// Add appends a transaction in ingest order.
func (store *Store) Add(trx *data.Transaction) {
	store.transactions = append(store.transactions, trx)
	store.sorted = false
}

// Transactions returns the canonically ordered event log.
func (store *Store) Transactions() []*data.Transaction {
	if !store.sorted {
		data.SortTransactions(store.transactions)
		store.sorted = true
	}
	return store.transactions
}

// Len returns the number of transactions held.
func (store *Store) Len() int {
	return len(store.transactions)
}

// days returns each distinct calendar day with at least one transaction, in
// ascending order, mapped to that day's transactions in canonical order.
func (store *Store) days() ([]time.Time, map[time.Time][]*data.Transaction) {
	byDay := make(map[time.Time][]*data.Transaction)
	days := make([]time.Time, 0)

	for _, trx := range store.Transactions() {
		day := data.Day(trx.Date)
		if _, ok := byDay[day]; !ok {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], trx)
	}

	return days, byDay
}
