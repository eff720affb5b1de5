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
	"errors"

	"github.com/penny-vault/pvcgt/data"
	"github.com/rs/zerolog"
)

var (
	// ErrInvariantViolation marks an impossible ledger state; apart from
	// cancellation of the context, it is the only error that aborts a
	// calculation.
	ErrInvariantViolation = errors.New("ledger invariant violated")
)

type IssueKind string

const (
	IssueParsing              IssueKind = "ParsingError"
	IssueReferenceDataMissing IssueKind = "ReferenceDataMissing"
	IssueEriSkipped           IssueKind = "EriSkipped"
	IssueSpinOffUnapplied     IssueKind = "SpinOffUnapplied"
	IssueCostBasisClamped     IssueKind = "CostBasisClamped"
)

// Issue is one accumulated error or warning. Issues never abort the
// calculation; the affected row is skipped and the partial result stands.
type Issue struct {
	Kind    IssueKind         `json:"kind"`
	Message string            `json:"message"`
	Source  *data.Transaction `json:"source,omitempty"`
}

func (issue *Issue) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Kind", string(issue.Kind))
	e.Str("Message", issue.Message)
	if issue.Source != nil {
		e.Object("Source", issue.Source)
	}
}
