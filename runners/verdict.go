// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Verdict is the aggregate of all runs of an evaluation.
type Verdict struct {
	// Threshold is the score a run must exceed to count as a success.
	Threshold float64
	// ShouldFail inverts the pass condition of the verdict.
	ShouldFail bool
	// Scores holds the score of every run in execution order.
	Scores []float64
	// Successes is the number of runs scoring strictly above the threshold.
	Successes int
	// Failures is the number of runs scoring at or below the threshold.
	Failures int
	// AchievedScore is the arithmetic mean of all run scores.
	AchievedScore float64
	// Reason is the last non-empty reason reported by any run.
	Reason string
}

func aggregate(cfg Config, outcomes []Outcome) Verdict {
	verdict := Verdict{
		Threshold:  cfg.Threshold,
		ShouldFail: cfg.ShouldFail,
		Scores:     make([]float64, 0, len(outcomes)),
	}
	for _, outcome := range outcomes {
		verdict.Scores = append(verdict.Scores, outcome.Score)
		if outcome.Score > cfg.Threshold {
			verdict.Successes++
		} else {
			verdict.Failures++
		}
		if outcome.Reason != "" {
			verdict.Reason = outcome.Reason
		}
	}
	verdict.AchievedScore = mean(verdict.Scores)
	return verdict
}

func mean[F constraints.Float](values []F) F {
	if len(values) == 0 {
		return 0
	}
	var sum F
	for _, v := range values {
		sum += v
	}
	return sum / F(len(values))
}

// Runs returns the number of executed runs.
func (v Verdict) Runs() int {
	return len(v.Scores)
}

// SuccessRate returns the fraction of runs that succeeded.
func (v Verdict) SuccessRate() float64 {
	if v.Runs() == 0 {
		return 0
	}
	return float64(v.Successes) / float64(v.Runs())
}

// Passed reports whether the verdict satisfies its threshold policy.
// An evaluation passes when the achieved score reaches the threshold,
// or falls below it when the evaluation is expected to fail.
func (v Verdict) Passed() bool {
	if v.ShouldFail {
		return v.AchievedScore < v.Threshold
	}
	return v.AchievedScore >= v.Threshold
}

// Comparator returns the relation the achieved score must have to the threshold.
func (v Verdict) Comparator() string {
	if v.ShouldFail {
		return "<"
	}
	return ">="
}

// Err returns an AggregateError if the verdict did not pass, nil otherwise.
func (v Verdict) Err() error {
	if v.Passed() {
		return nil
	}
	return &AggregateError{Verdict: v}
}

func (v Verdict) message() string {
	var b strings.Builder
	if v.ShouldFail {
		b.WriteString("expected to fail but succeeded")
	} else {
		b.WriteString("failed to meet success threshold")
	}
	fmt.Fprintf(&b, ": score %.2g (required: %s %.2g), success rate %.2f%% (%d/%d)",
		v.AchievedScore, v.Comparator(), v.Threshold, 100*v.SuccessRate(), v.Successes, v.Runs())
	if v.Reason != "" {
		fmt.Fprintf(&b, ", %s", v.Reason)
	}
	return b.String()
}
