// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/petmal/stattest/runners"
)

// NewSummaryLogFormatter creates a new formatter that outputs records summarized per test name as an ASCII table.
func NewSummaryLogFormatter() Formatter {
	return &summaryLogFormatter{}
}

type summaryLogFormatter struct{}

func (f summaryLogFormatter) FileExt() string {
	return "summary.log"
}

func (f summaryLogFormatter) Write(records []runners.Record, out io.Writer) error {
	tab := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.Debug)
	defer tab.Flush()
	if _, err := fmt.Fprintf(tab, "Name\t%s\t%s\tPass Rate (%%)\tMean Score\tRun Success Rate (%%)\tTotal Duration\t\n", Passed, Failed); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	return ForEachOrdered(GroupByName(records), func(name string, group []runners.Record) error {
		passed := CountPassed(group)
		if _, err := fmt.Fprintf(tab, "%s\t%d\t%d\t%.2f\t%.4f\t%.2f\t%s\t\n",
			name,
			passed,
			len(group)-passed,
			Percent(Rate(passed, len(group))),
			MeanScore(group),
			Percent(RunSuccessRate(group)),
			RoundToMS(TotalDuration(group))); err != nil {
			return fmt.Errorf("%w: %v", ErrPrintResults, err)
		}
		return nil
	})
}
