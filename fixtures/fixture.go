// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package fixtures materializes the inputs of a statistical test by invoking
// a nondeterministic producer a fixed number of times.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/petmal/stattest/pkg/logging"
)

// DefaultRepeat is the number of times a producer is invoked when no count is configured.
const DefaultRepeat = 5

// ErrInvalidRepeat is returned when a fixture is configured with a repeat count below one.
var ErrInvalidRepeat = errors.New("repeat count must be at least 1")

// Producer produces one fixture value.
type Producer[T any] func(ctx context.Context) (T, error)

// Func adapts an infallible producer without a context.
func Func[T any](produce func() T) Producer[T] {
	return func(context.Context) (T, error) {
		return produce(), nil
	}
}

// Fixture invokes a Producer repeatedly to build an ordered list of values.
// Nothing is cached between resolutions.
type Fixture[T any] struct {
	produce Producer[T]
	repeat  int
	name    string
	logger  logging.Logger
}

// Option configures a Fixture.
type Option func(*settings)

type settings struct {
	repeat int
	name   string
	logger logging.Logger
}

// WithRepeat sets how many times the producer is invoked per resolution.
func WithRepeat(n int) Option {
	return func(s *settings) {
		s.repeat = n
	}
}

// WithName sets the name used in logs.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New creates a Fixture for the given producer.
func New[T any](produce Producer[T], opts ...Option) (*Fixture[T], error) {
	s := settings{
		repeat: DefaultRepeat,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if produce == nil {
		return nil, errors.New("producer must not be nil")
	}
	if s.repeat < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRepeat, s.repeat)
	}
	logger := s.logger
	if s.name != "" {
		logger = logger.WithContext(s.name + ": ")
	}
	return &Fixture[T]{
		produce: produce,
		repeat:  s.repeat,
		name:    s.name,
		logger:  logger,
	}, nil
}

// Repeat returns the number of values produced per resolution.
func (f *Fixture[T]) Repeat() int {
	return f.repeat
}

// Resolve invokes the producer sequentially and returns its values in invocation order.
// The first producer error, or a cancelled context, aborts the resolution and no values are returned.
func (f *Fixture[T]) Resolve(ctx context.Context) ([]T, error) {
	values := make([]T, 0, f.repeat)
	for i := range f.repeat {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := f.produce(ctx)
		if err != nil {
			f.logger.Error(ctx, logging.LevelError, err, "producing value %d/%d failed", i+1, f.repeat)
			return nil, fmt.Errorf("failed to produce fixture value %d of %d: %w", i+1, f.repeat, err)
		}
		values = append(values, value)
	}
	f.logger.Message(ctx, logging.LevelDebug, "produced %d values", len(values))
	return values, nil
}

// MustResolve resolves the fixture using the context of the test and stops the test on failure.
func (f *Fixture[T]) MustResolve(t testing.TB) []T {
	t.Helper()
	values, err := f.Resolve(t.Context())
	if err != nil {
		t.Fatalf("fixture %s: %v", f.name, err)
	}
	return values
}

// Repeat is a shorthand for creating a fixture with the given repeat count and resolving it.
func Repeat[T any](ctx context.Context, n int, produce Producer[T]) ([]T, error) {
	f, err := New(produce, WithRepeat(n))
	if err != nil {
		return nil, err
	}
	return f.Resolve(ctx)
}
