// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a test is set up with an invalid run count, threshold or arguments.
	// Configuration errors are detected before any run executes.
	ErrConfiguration = errors.New("invalid test configuration")
	// ErrRunCountUndetermined is returned when the run count is to be derived from arguments
	// but no usable list-valued argument is present.
	ErrRunCountUndetermined = fmt.Errorf("%w: cannot determine the number of runs", ErrConfiguration)
	// ErrRunFailed marks an expected failure of a single run.
	// A run returning an error that wraps it is scored 0 and evaluation continues.
	ErrRunFailed = errors.New("run failed")
	// ErrUnsupportedResult is returned when a run produces a value that cannot be normalized into a score.
	ErrUnsupportedResult = errors.New("unsupported run result")
	// ErrRunPanicked is returned when a test body panics.
	ErrRunPanicked = errors.New("run panicked")
)

// AssertionError is an assertion-style failure of a single run.
// The run is scored 0 and the message becomes the reason of the run.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Assertf returns an AssertionError with a formatted message.
func Assertf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// AggregateError reports a completed evaluation whose verdict did not satisfy the threshold policy.
type AggregateError struct {
	Verdict Verdict
}

func (e *AggregateError) Error() string {
	return e.Verdict.message()
}
