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

// NewLogFormatter creates a new formatter that outputs detailed records as an ASCII table.
func NewLogFormatter() Formatter {
	return &logFormatter{}
}

type logFormatter struct{}

func (f logFormatter) FileExt() string {
	return "log"
}

func (f logFormatter) Write(records []runners.Record, out io.Writer) error {
	tab := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.Debug)
	defer tab.Flush()
	if _, err := fmt.Fprintln(tab, "ID\tName\tStatus\tScore\tRequired\tSuccesses\tDuration\tReason\t"); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	for _, record := range records {
		verdict := record.Verdict
		if _, err := fmt.Fprintf(tab, "%s\t%s\t%s\t%.2f\t%s\t%d/%d\t%s\t%s\t\n",
			record.ID, record.Name, ToStatus(record),
			verdict.AchievedScore, Requirement(verdict),
			verdict.Successes, verdict.Runs(),
			RoundToMS(record.Duration), SingleLine(verdict.Reason)); err != nil {
			return fmt.Errorf("%w: %v", ErrPrintResults, err)
		}
	}
	return nil
}
