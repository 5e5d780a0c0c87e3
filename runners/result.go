// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"fmt"
	"reflect"
)

// ResultKind identifies the variant of a Result.
type ResultKind int

const (
	// Absent means the run produced no value. It counts as a full success.
	Absent ResultKind = iota
	// Scored means the run produced a bare score.
	Scored
	// Annotated means the run produced only a reason. It counts as a full success.
	Annotated
	// ScoredWithReason means the run produced a score together with a reason.
	ScoredWithReason
)

func (k ResultKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Scored:
		return "scored"
	case Annotated:
		return "annotated"
	case ScoredWithReason:
		return "scored-with-reason"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Result is the value a test body produces for a single run.
// The zero value is equivalent to NoResult.
type Result struct {
	kind   ResultKind
	score  float64
	reason string
}

// NoResult returns a Result for a run that only asserts.
func NoResult() Result {
	return Result{kind: Absent}
}

// Score returns a Result carrying a bare score.
func Score(score float64) Result {
	return Result{kind: Scored, score: score}
}

// Annotation returns a Result carrying only a reason.
func Annotation(reason string) Result {
	return Result{kind: Annotated, reason: reason}
}

// ScoreWithReason returns a Result carrying a score and a reason.
func ScoreWithReason(score float64, reason string) Result {
	return Result{kind: ScoredWithReason, score: score, reason: reason}
}

// Kind returns the variant of the result.
func (r Result) Kind() ResultKind {
	return r.kind
}

// Outcome normalizes the result into a score and reason.
func (r Result) Outcome() Outcome {
	switch r.kind {
	case Scored:
		return Outcome{Score: r.score}
	case Annotated:
		return Outcome{Score: 1, Reason: r.reason}
	case ScoredWithReason:
		return Outcome{Score: r.score, Reason: r.reason}
	default:
		return Outcome{Score: 1}
	}
}

// Outcome is the normalized score and reason of a single run.
type Outcome struct {
	Score  float64
	Reason string
}

// ScoreReasoner is implemented by values that carry a score together with an explanation.
type ScoreReasoner interface {
	ScoreReason() (score float64, reason string)
}

// Normalize converts a dynamically typed run value into a Result.
//
//   - nil or a nil pointer yields NoResult
//   - a Result is returned unchanged
//   - an Outcome or a ScoreReasoner yields ScoreWithReason
//   - any floating-point value yields Score
//   - any string value yields Annotation
//
// Any other value is rejected with ErrUnsupportedResult.
func Normalize(value any) (Result, error) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return NoResult(), nil
	}

	switch v := value.(type) {
	case Result:
		return v, nil
	case Outcome:
		return ScoreWithReason(v.Score, v.Reason), nil
	case ScoreReasoner:
		score, reason := v.ScoreReason()
		return ScoreWithReason(score, reason), nil
	}

	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Score(rv.Float()), nil
	case reflect.String:
		return Annotation(rv.String()), nil
	}
	return Result{}, fmt.Errorf("%w: %T", ErrUnsupportedResult, value)
}

// From normalizes the value of a call returning a value and an error.
// A non-nil error is returned unchanged.
func From(value any, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Normalize(value)
}

// Dynamic adapts a test body producing any normalizable value.
func Dynamic[T any](body func(r *R) (T, error)) Body {
	return func(r *R) (Result, error) {
		return From(body(r))
	}
}

// AssertOnly adapts a test body that reports only through assertions on the run handle.
func AssertOnly(body func(r *R)) Body {
	return func(r *R) (Result, error) {
		body(r)
		return NoResult(), nil
	}
}
