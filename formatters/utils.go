// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package formatters

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/petmal/stattest/runners"
)

const (
	// Passed is the status of a record whose verdict passed.
	Passed = "Passed"
	// Failed is the status of a record whose verdict did not pass.
	Failed = "Failed"
)

// unnamed groups records evaluated without a name.
const unnamed = "<unnamed>"

// ToStatus returns the status label of the record.
func ToStatus(record runners.Record) string {
	if record.Passed() {
		return Passed
	}
	return Failed
}

// Requirement describes the pass condition of the verdict, e.g. ">= 0.80".
func Requirement(verdict runners.Verdict) string {
	return fmt.Sprintf("%s %.2f", verdict.Comparator(), verdict.Threshold)
}

// GroupByName groups records by their name, preserving their order within each group.
func GroupByName(records []runners.Record) map[string][]runners.Record {
	groups := make(map[string][]runners.Record)
	for _, record := range records {
		name := record.Name
		if name == "" {
			name = unnamed
		}
		groups[name] = append(groups[name], record)
	}
	return groups
}

// CountPassed returns the number of records whose verdict passed.
func CountPassed(records []runners.Record) (count int) {
	for _, record := range records {
		if record.Passed() {
			count++
		}
	}
	return
}

// MeanScore returns the mean achieved score across records.
func MeanScore(records []runners.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, record := range records {
		sum += record.Verdict.AchievedScore
	}
	return sum / float64(len(records))
}

// RunSuccessRate returns the fraction of successful runs across all records.
func RunSuccessRate(records []runners.Record) float64 {
	var successes, runs int
	for _, record := range records {
		successes += record.Verdict.Successes
		runs += record.Verdict.Runs()
	}
	return Rate(successes, runs)
}

// TotalDuration returns the sum of the durations of all records.
func TotalDuration(records []runners.Record) (total time.Duration) {
	for _, record := range records {
		total += record.Duration
	}
	return
}

// Rate returns count divided by total, or 0 if total is 0.
func Rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// Percent converts a fraction to a percentage.
func Percent(fraction float64) float64 {
	return fraction * 100
}

// ForEachOrdered calls fn for every entry of m in ascending key order.
// It stops at and returns the first error.
func ForEachOrdered[K cmp.Ordered, V any](m map[K]V, fn func(key K, value V) error) error {
	for _, key := range SortedKeys(m) {
		if err := fn(key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// RoundToMS rounds the duration to the nearest millisecond.
func RoundToMS(value time.Duration) time.Duration {
	return value.Round(time.Millisecond)
}

// SingleLine collapses line breaks so that the text fits into a single table cell.
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
