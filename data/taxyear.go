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
package data

import (
	"fmt"
	"time"
)

// TaxYear is a UK fiscal year: 6 April of the named year through 5 April of
// the following year, inclusive, UTC.
type TaxYear int

// Start returns the first day of the tax year.
func (ty TaxYear) Start() time.Time {
	return time.Date(int(ty), time.April, 6, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the tax year.
func (ty TaxYear) End() time.Time {
	return time.Date(int(ty)+1, time.April, 5, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether the calendar day of t falls inside the tax year.
func (ty TaxYear) Contains(t time.Time) bool {
	day := Day(t)
	return !day.Before(ty.Start()) && !day.After(ty.End())
}

// TaxYearOf returns the tax year a calendar day belongs to.
func TaxYearOf(t time.Time) TaxYear {
	ty := TaxYear(t.Year())
	if Day(t).Before(ty.Start()) {
		ty--
	}
	return ty
}

func (ty TaxYear) String() string {
	return fmt.Sprintf("%d/%d", int(ty), int(ty)+1)
}
