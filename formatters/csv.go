// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/petmal/stattest/runners"
)

// NewCSVFormatter creates a new formatter that outputs records in CSV format.
func NewCSVFormatter() Formatter {
	return &csvFormatter{}
}

type csvFormatter struct{}

func (f csvFormatter) FileExt() string {
	return "csv"
}

func (f csvFormatter) Write(records []runners.Record, out io.Writer) error {
	writer := csv.NewWriter(out)

	headers := []string{"ID", "Name", "Status", "Runs", "Successes", "Success Rate (%)", "Score", "Required", "Duration", "Reason"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}

	for _, record := range records {
		verdict := record.Verdict
		row := []string{
			record.ID,
			record.Name,
			ToStatus(record),
			strconv.Itoa(verdict.Runs()),
			strconv.Itoa(verdict.Successes),
			fmt.Sprintf("%.2f", Percent(verdict.SuccessRate())),
			fmt.Sprintf("%.4f", verdict.AchievedScore),
			Requirement(verdict),
			RoundToMS(record.Duration).String(),
			verdict.Reason,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("%w: %v", ErrPrintResults, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPrintResults, err)
	}
	return nil
}
