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
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary renders the report as a markdown document. All figures display with
// banker's rounding to pence; internal values keep full precision.
func (rpt *Report) Summary() string {
	p := message.NewPrinter(language.BritishEnglish)
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("# Capital Gains %s\n\n", rpt.TaxYear))

	builder.WriteString("## Totals\n\n")
	builder.WriteString(fmt.Sprintf("  * Capital Gain: £%s\n", rpt.CapitalGain.StringFixedBank(2)))
	builder.WriteString(fmt.Sprintf("  * Capital Loss: £%s\n", rpt.CapitalLoss.StringFixedBank(2)))
	builder.WriteString(fmt.Sprintf("  * Net Gain/Loss: £%s\n", rpt.NetGainLoss.StringFixedBank(2)))
	builder.WriteString(fmt.Sprintf("  * Annual Allowance: £%s\n", rpt.AnnualAllowance.StringFixedBank(2)))
	builder.WriteString(p.Sprintf("  * Disposals: %d\n\n", len(rpt.Disposals)))

	if len(rpt.Portfolio) > 0 {
		builder.WriteString("## Portfolio\n\n")
		builder.WriteString("| Symbol | Quantity | Cost Basis (GBP) |\n")
		builder.WriteString("| --- | ---: | ---: |\n")
		for _, pos := range rpt.Portfolio {
			builder.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				pos.Symbol, pos.Quantity.String(), pos.Amount.StringFixedBank(2)))
		}
		builder.WriteString("\n")
	}

	if len(rpt.Dividends) > 0 {
		builder.WriteString("## Dividends\n\n")
		builder.WriteString("| Date | Symbol | Currency | Amount | GBP | Withholding (GBP) |\n")
		builder.WriteString("| --- | --- | --- | ---: | ---: | ---: |\n")
		for _, dividend := range rpt.Dividends {
			builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				dividend.Date.Format("2006-01-02"), dividend.Symbol, dividend.Currency,
				dividend.Amount.StringFixedBank(2), dividend.AmountGBP.StringFixedBank(2),
				dividend.WithholdingGBP.StringFixedBank(2)))
		}
		builder.WriteString("\n")
	}

	if len(rpt.Interest) > 0 {
		builder.WriteString("## Interest\n\n")
		builder.WriteString("| Month | Broker | Currency | Amount | GBP |\n")
		builder.WriteString("| --- | --- | --- | ---: | ---: |\n")
		for _, interest := range rpt.Interest {
			builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				interest.Month.Format("2006-01"), interest.Broker, interest.Currency,
				interest.Amount.StringFixedBank(2), interest.AmountGBP.StringFixedBank(2)))
		}
		builder.WriteString("\n")
	}

	if len(rpt.Shorts) > 0 {
		builder.WriteString("## Short Positions\n\n")
		for _, short := range rpt.Shorts {
			builder.WriteString(fmt.Sprintf("  * %s: sold %s %s beyond shares held (proceeds £%s)\n",
				short.Date.Format("2006-01-02"), short.Quantity.String(), short.Symbol,
				short.ProceedsGBP.StringFixedBank(2)))
		}
		builder.WriteString("\n")
	}

	if len(rpt.CalculationLog) > 0 {
		builder.WriteString("## Calculation Log\n\n")
		for _, entry := range rpt.CalculationLog {
			builder.WriteString(fmt.Sprintf("  * %s %s\n", entry.Date.Format("2006-01-02"), entry.Description))
		}
		builder.WriteString("\n")
	}

	if len(rpt.Warnings) > 0 {
		builder.WriteString("## Warnings\n\n")
		for _, warning := range rpt.Warnings {
			builder.WriteString(fmt.Sprintf("  * [%s] %s\n", warning.Kind, warning.Message))
		}
		builder.WriteString("\n")
	}

	if len(rpt.Errors) > 0 {
		builder.WriteString("## Errors\n\n")
		for _, issue := range rpt.Errors {
			builder.WriteString(fmt.Sprintf("  * [%s] %s\n", issue.Kind, issue.Message))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}
