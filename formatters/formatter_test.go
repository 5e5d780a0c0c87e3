// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/petmal/stattest/pkg/testutils"
	"github.com/petmal/stattest/runners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mockRecords = []runners.Record{
	{
		ID:   "01JAAAAAAAAAAAAAAAAAAAAAAA",
		Name: "TestJudgeWithCriterion",
		Verdict: runners.Verdict{
			Threshold:     0.8,
			Scores:        []float64{1, 1, 0.9, 1, 0.6},
			Successes:     4,
			Failures:      1,
			AchievedScore: 0.9,
		},
		Duration: 2*time.Second + 400*time.Microsecond,
	},
	{
		ID:   "01JBBBBBBBBBBBBBBBBBBBBBBB",
		Name: "TestJudgeWithGroundTruth",
		Verdict: runners.Verdict{
			Threshold:     0.8,
			Scores:        []float64{0.5, 0.4},
			Successes:     0,
			Failures:      2,
			AchievedScore: 0.45,
			Reason:        "ground truth \"I have some coal\" scored 0.40;\ndiff: I have [-some-]{+no+} coal",
		},
		Duration: 1500 * time.Millisecond,
	},
	{
		ID:   "01JCCCCCCCCCCCCCCCCCCCCCCC",
		Name: "TestJudgeWithCriterion",
		Verdict: runners.Verdict{
			Threshold:     0.8,
			ShouldFail:    true,
			Scores:        []float64{0, 0},
			Failures:      2,
			AchievedScore: 0,
		},
		Duration: 500 * time.Millisecond,
	},
}

func TestCSVFormatterWrite(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewCSVFormatter().Write(mockRecords, &out))

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(mockRecords)+1)

	assert.Equal(t, []string{"ID", "Name", "Status", "Runs", "Successes", "Success Rate (%)", "Score", "Required", "Duration", "Reason"}, rows[0])
	assert.Equal(t, []string{"01JAAAAAAAAAAAAAAAAAAAAAAA", "TestJudgeWithCriterion", Passed, "5", "4", "80.00", "0.9000", ">= 0.80", "2s", ""}, rows[1])
	assert.Equal(t, []string{"01JBBBBBBBBBBBBBBBBBBBBBBB", "TestJudgeWithGroundTruth", Failed, "2", "0", "0.00", "0.4500", ">= 0.80", "1.5s", mockRecords[1].Verdict.Reason}, rows[2])
	assert.Equal(t, []string{"01JCCCCCCCCCCCCCCCCCCCCCCC", "TestJudgeWithCriterion", Passed, "2", "0", "0.00", "0.0000", "< 0.80", "500ms", ""}, rows[3])
}

func TestCSVFormatterWriteEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewCSVFormatter().Write(nil, &out))
	assert.Equal(t, "ID,Name,Status,Runs,Successes,Success Rate (%),Score,Required,Duration,Reason\n", out.String())
}

func TestLogFormatterWrite(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewLogFormatter().Write(mockRecords, &out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, len(mockRecords)+1)
	testutils.AssertContainsAll(t, lines[0], []string{"ID", "Name", "Status", "Score", "Required", "Successes", "Duration", "Reason"})
	testutils.AssertContainsAll(t, lines[1], []string{"01JAAAAAAAAAAAAAAAAAAAAAAA", "TestJudgeWithCriterion", Passed, "0.90", ">= 0.80", "4/5", "2s"})
	testutils.AssertContainsAll(t, lines[2], []string{"TestJudgeWithGroundTruth", Failed, "0.45", "0/2", "1.5s", "scored 0.40; diff: I have [-some-]{+no+} coal"})
	testutils.AssertContainsAll(t, lines[3], []string{Passed, "< 0.80", "0/2", "500ms"})
	for _, line := range lines {
		assert.Equal(t, strings.Count(lines[0], "|"), strings.Count(line, "|"), line)
	}
}

func TestSummaryLogFormatterWrite(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewSummaryLogFormatter().Write(mockRecords, &out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	testutils.AssertContainsAll(t, lines[0], []string{"Name", Passed, Failed, "Pass Rate (%)", "Mean Score", "Run Success Rate (%)", "Total Duration"})

	fields := func(line string) []string {
		var cells []string
		for _, cell := range strings.Split(line, "|") {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		return cells
	}
	assert.Equal(t, []string{"TestJudgeWithCriterion", "2", "0", "100.00", "0.4500", "57.14", "2.5s"}, fields(lines[1]))
	assert.Equal(t, []string{"TestJudgeWithGroundTruth", "0", "1", "0.00", "0.4500", "0.00", "1.5s"}, fields(lines[2]))
}

func TestSummaryLogFormatterWriteEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewSummaryLogFormatter().Write(nil, &out))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestFormatterFileExt(t *testing.T) {
	tests := []struct {
		formatter Formatter
		want      string
	}{
		{NewCSVFormatter(), "csv"},
		{NewLogFormatter(), "log"},
		{NewSummaryLogFormatter(), "summary.log"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.formatter.FileExt())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCSVFormatterWriteError(t *testing.T) {
	err := NewCSVFormatter().Write(mockRecords, failingWriter{})
	require.ErrorIs(t, err, ErrPrintResults)
}
