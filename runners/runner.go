// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package runners executes a nondeterministic test body many times and
// decides the outcome statistically from the aggregate of all runs.
package runners

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/petmal/stattest/pkg/logging"
)

const (
	// DefaultThreshold is the threshold used when none is configured.
	DefaultThreshold = 0.8
	// DeriveRunCount requests the run count be taken from the first list-valued argument.
	DeriveRunCount = -1
)

// Config is the threshold policy of a Runner.
type Config struct {
	// Threshold is the score a run must exceed to succeed and the achieved score
	// must reach for the evaluation to pass.
	Threshold float64 `validate:"notnan"`
	// RunCount is the number of runs, or DeriveRunCount.
	RunCount int `validate:"eq=-1|min=1"`
	// ShouldFail inverts the pass condition.
	ShouldFail bool
}

// Body is a test body executed once per run.
type Body func(r *R) (Result, error)

// MethodBody is a test body bound to an owner, such as a suite.
type MethodBody[O any] func(owner O, r *R) (Result, error)

// TestingT is the subset of testing.TB used to report an evaluation to the test framework.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

// Runner evaluates test bodies under a fixed threshold policy.
// A Runner is immutable after construction and safe for concurrent use.
type Runner struct {
	cfg      Config
	name     string
	logger   logging.Logger
	recorder *Recorder
	absorbed []error
}

// Option configures a Runner.
type Option func(*Runner)

// WithThreshold sets the success threshold.
func WithThreshold(threshold float64) Option {
	return func(r *Runner) {
		r.cfg.Threshold = threshold
	}
}

// WithRunCount sets an explicit number of runs.
// Use DeriveRunCount to take it from the arguments.
func WithRunCount(n int) Option {
	return func(r *Runner) {
		r.cfg.RunCount = n
	}
}

// WithShouldFail inverts the pass condition so that the evaluation passes
// only if the achieved score stays below the threshold.
func WithShouldFail(shouldFail bool) Option {
	return func(r *Runner) {
		r.cfg.ShouldFail = shouldFail
	}
}

// WithName sets the name used in logs and records.
func WithName(name string) Option {
	return func(r *Runner) {
		r.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRecorder makes the runner store every completed verdict in the given recorder.
func WithRecorder(recorder *Recorder) Option {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

// AbsorbErrors adds errors that are treated as an ordinary failed run rather than
// aborting the evaluation. Errors are matched with errors.Is.
func AbsorbErrors(targets ...error) Option {
	return func(r *Runner) {
		r.absorbed = append(r.absorbed, targets...)
	}
}

// NewRunner creates a Runner. It returns an error wrapping ErrConfiguration
// if the resulting policy is invalid.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg: Config{
			Threshold: DefaultThreshold,
			RunCount:  DeriveRunCount,
		},
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := validate.Struct(r.cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return r, nil
}

// Config returns the threshold policy of the runner.
func (r *Runner) Config() Config {
	return r.cfg
}

// Evaluate executes body for every run sequentially and aggregates the outcomes.
//
// A run succeeds if its score is strictly greater than the threshold.
// The evaluation passes if the mean score is greater than or equal to the threshold,
// or strictly less than it when the runner expects failure.
// If the evaluation completes but does not pass, the verdict is returned together
// with an *AggregateError. Configuration errors and fatal run errors abort the
// evaluation and return a zero Verdict.
func (r *Runner) Evaluate(ctx context.Context, body Body, args Args) (verdict Verdict, err error) {
	runs, err := args.runCount(r.cfg.RunCount)
	if err != nil {
		return verdict, err
	}

	logger := r.logger
	if r.name != "" {
		logger = logger.WithContext(r.name + ": ")
	}
	logger.Message(ctx, logging.LevelDebug, "starting %d run%s with threshold %g...", pluralize(countable(runs), r.cfg.Threshold)...)
	start := time.Now()
	outcomes := make([]Outcome, 0, runs)
	for i := range runs {
		run := newR(ctx, r.name, i, runs, args.forRun(i, runs), logger)
		outcome, err := r.execute(run, body)
		if err != nil {
			logger.Error(ctx, logging.LevelError, err, "run %d/%d aborted the evaluation", i+1, runs)
			return Verdict{}, fmt.Errorf("run %d of %d: %w", i+1, runs, err)
		}
		logger.Message(ctx, logging.LevelTrace, "run %d/%d: score %g %s", i+1, runs, outcome.Score, outcome.Reason)
		outcomes = append(outcomes, outcome)
	}

	verdict = aggregate(r.cfg, outcomes)
	duration := time.Since(start)
	if r.recorder != nil {
		r.recorder.add(r.name, verdict, duration)
	}
	status := "passed"
	if !verdict.Passed() {
		status = "failed"
	}
	logger.Message(ctx, logging.LevelInfo, "%s in %s: score %.2g (required: %s %.2g), success rate %d/%d",
		status, duration, verdict.AchievedScore, verdict.Comparator(), verdict.Threshold, verdict.Successes, verdict.Runs())
	return verdict, verdict.Err()
}

// EvaluateMethod evaluates a test body bound to owner.
// The owner is passed to every run and never zipped.
func EvaluateMethod[O any](ctx context.Context, r *Runner, owner O, body MethodBody[O], args Args) (Verdict, error) {
	return r.Evaluate(ctx, bind(owner, body), args)
}

// Run evaluates body and reports any error to t, stopping the test on failure.
// If the runner has no name, the name of t is used.
func (r *Runner) Run(t TestingT, body Body, args Args) {
	t.Helper()
	named := r
	if r.name == "" {
		named = r.withName(nameOf(t))
	}
	if _, err := named.Evaluate(contextOf(t), body, args); err != nil {
		t.Errorf("%v", err)
		t.FailNow()
	}
}

// RunMethod is the TestingT counterpart of EvaluateMethod.
func RunMethod[O any](t TestingT, r *Runner, owner O, body MethodBody[O], args Args) {
	t.Helper()
	r.Run(t, bind(owner, body), args)
}

// Check creates a Runner from opts and runs body with it.
func Check(t TestingT, body Body, args Args, opts ...Option) {
	t.Helper()
	r, err := NewRunner(opts...)
	if err != nil {
		t.Errorf("%v", err)
		t.FailNow()
		return
	}
	r.Run(t, body, args)
}

// Each runs body once for every sample. Unless the run count is set explicitly,
// the number of runs equals the number of samples.
func Each[T any](t TestingT, samples []T, body func(r *R, sample T) (Result, error), opts ...Option) {
	t.Helper()
	Check(t, func(r *R) (Result, error) {
		return body(r, ArgAs[T](r, 0))
	}, Positional(samples), opts...)
}

func (r *Runner) withName(name string) *Runner {
	named := *r
	named.name = name
	named.absorbed = slices.Clone(r.absorbed)
	return &named
}

func (r *Runner) execute(run *R, body Body) (Outcome, error) {
	result, err := call(run, body)
	switch {
	case err != nil:
		return r.classify(run, err)
	case run.Failed():
		return Outcome{Reason: run.failureMessage()}, nil
	default:
		return result.Outcome(), nil
	}
}

func (r *Runner) classify(run *R, err error) (Outcome, error) {
	var assertion *AssertionError
	if errors.As(err, &assertion) {
		return Outcome{Reason: err.Error()}, nil
	}
	if !r.absorbs(err) {
		return Outcome{}, err
	}
	if run.Failed() {
		return Outcome{Reason: run.failureMessage()}, nil
	}
	return Outcome{}, nil
}

func (r *Runner) absorbs(err error) bool {
	if errors.Is(err, ErrRunFailed) {
		return true
	}
	for _, target := range r.absorbed {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// call invokes body, converting FailNow and panics into errors.
func call(run *R, body Body) (result Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			if _, ok := p.(failNow); ok {
				err = &AssertionError{Message: run.failureMessage()}
				return
			}
			err = fmt.Errorf("%w: %v", ErrRunPanicked, p)
		}
	}()
	return body(run)
}

func bind[O any](owner O, body MethodBody[O]) Body {
	return func(r *R) (Result, error) {
		return body(owner, r)
	}
}
