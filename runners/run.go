// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"context"
	"fmt"
	"strings"

	"github.com/petmal/stattest/pkg/logging"
)

// R is the handle passed to a test body for a single run.
// It satisfies the assert.TestingT and require.TestingT interfaces of testify,
// so a failed assertion fails the current run only.
// An R must not be used after its run has finished.
type R struct {
	ctx      context.Context
	name     string
	index    int
	runs     int
	args     Args
	logger   logging.Logger
	failed   bool
	failures []string
}

// failNow is the panic value used by FailNow to abort the current run.
type failNow struct{}

func newR(ctx context.Context, name string, index, runs int, args Args, logger logging.Logger) *R {
	return &R{
		ctx:    ctx,
		name:   name,
		index:  index,
		runs:   runs,
		args:   args,
		logger: logger,
	}
}

// Context returns the context of the evaluation.
func (r *R) Context() context.Context {
	return r.ctx
}

// Name returns the name of the run.
func (r *R) Name() string {
	if r.name == "" {
		return fmt.Sprintf("#%d", r.index)
	}
	return fmt.Sprintf("%s#%d", r.name, r.index)
}

// Index returns the zero-based index of the run.
func (r *R) Index() int {
	return r.index
}

// Runs returns the total number of runs of the evaluation.
func (r *R) Runs() int {
	return r.runs
}

// Args returns the arguments of the run.
func (r *R) Args() Args {
	return r.args
}

// Arg returns the i-th positional argument of the run.
// It panics if there is no such argument.
func (r *R) Arg(i int) any {
	value, ok := r.args.At(i)
	if !ok {
		panic(fmt.Sprintf("runners: positional argument %d out of range [0,%d)", i, r.args.Len()))
	}
	return value
}

// Get returns the named argument of the run.
// It panics if there is no such argument.
func (r *R) Get(name string) any {
	value, ok := r.args.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("runners: no argument named %q", name))
	}
	return value
}

// ArgAs returns the i-th positional argument of the run as T.
// It panics if there is no such argument or it has a different type.
func ArgAs[T any](r *R, i int) T {
	return as[T](r.Arg(i), fmt.Sprintf("positional argument %d", i))
}

// GetAs returns the named argument of the run as T.
// It panics if there is no such argument or it has a different type.
func GetAs[T any](r *R, name string) T {
	return as[T](r.Get(name), fmt.Sprintf("argument %q", name))
}

func as[T any](value any, source string) T {
	if value == nil {
		var zero T
		return zero
	}
	typed, ok := value.(T)
	if !ok {
		panic(fmt.Sprintf("runners: %s is %T, not %T", source, value, *new(T)))
	}
	return typed
}

// Helper is a no-op.
func (r *R) Helper() {}

// Errorf marks the run as failed and records the formatted message.
func (r *R) Errorf(format string, args ...any) {
	r.failed = true
	r.failures = append(r.failures, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Error marks the run as failed and records the message.
func (r *R) Error(args ...any) {
	r.failed = true
	r.failures = append(r.failures, strings.TrimSpace(fmt.Sprint(args...)))
}

// Fail marks the run as failed without a message.
func (r *R) Fail() {
	r.failed = true
}

// FailNow marks the run as failed and stops its execution.
func (r *R) FailNow() {
	r.failed = true
	panic(failNow{})
}

// Fatalf is equivalent to Errorf followed by FailNow.
func (r *R) Fatalf(format string, args ...any) {
	r.Errorf(format, args...)
	r.FailNow()
}

// Failed reports whether the run has been marked as failed.
func (r *R) Failed() bool {
	return r.failed
}

// Logf writes a debug message to the evaluation log.
func (r *R) Logf(format string, args ...any) {
	r.logger.Message(r.ctx, logging.LevelDebug, "%s: %s", r.Name(), fmt.Sprintf(format, args...))
}

func (r *R) failureMessage() string {
	return strings.Join(r.failures, "\n")
}
