// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package judges

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
	"github.com/petmal/stattest/providers"
)

// Factory owns the judge shared by a test process.
// The provider client is created on first use and reused by every later evaluation.
// A Factory must not be used after Close.
type Factory struct {
	cfg      config.JudgeConfig
	logger   logging.Logger
	provider providers.Provider
	judge    func(context.Context, *Factory) (*Judge, error)

	createdLock sync.Mutex
	created     []*Judge
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithProvider makes the factory use the given provider instead of creating one from the configuration.
func WithProvider(provider providers.Provider) FactoryOption {
	return func(f *Factory) {
		f.provider = provider
	}
}

// WithLogger sets the logger used by the judge.
func WithLogger(logger logging.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a factory for the given judge configuration.
func NewFactory(cfg config.JudgeConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.judge = config.OnceWithContext(func(ctx context.Context, f *Factory) (*Judge, error) {
		return f.createJudge(ctx)
	})
	return f
}

// NewFactoryFromEnv creates a factory configured from environment variables,
// loading the given environment files first (".env" if none are given).
func NewFactoryFromEnv(ctx context.Context, opts []FactoryOption, envFiles ...string) (*Factory, error) {
	cfg, err := config.LoadConfigFromEnv(ctx, envFiles...)
	if err != nil {
		return nil, err
	}
	return NewFactory(cfg.Judge, opts...), nil
}

// Judge returns the shared judge, creating its provider client on the first call.
// A failed creation is not retried; the same error is returned to every caller.
func (f *Factory) Judge(ctx context.Context) (*Judge, error) {
	return f.judge(ctx, f)
}

// Evaluate scores the text with the shared judge.
func (f *Factory) Evaluate(ctx context.Context, text string, opts ...Option) (Assessment, error) {
	judge, err := f.Judge(ctx)
	if err != nil {
		return Assessment{}, err
	}
	return judge.Evaluate(ctx, text, opts...)
}

// Close closes the shared judge if it was created and returns any errors that occurred.
func (f *Factory) Close(ctx context.Context) error {
	f.createdLock.Lock()
	defer f.createdLock.Unlock()

	var errs []error
	for _, judge := range f.created {
		errs = append(errs, judge.Close(ctx))
	}
	f.created = nil
	return errors.Join(errs...)
}

func (f *Factory) createJudge(ctx context.Context) (*Judge, error) {
	provider := f.provider
	if provider == nil {
		var err error
		if provider, err = providers.NewProvider(ctx, f.cfg.Provider); err != nil {
			return nil, fmt.Errorf("failed to create judge provider: %w", err)
		}
	}

	judge := New(provider, f.cfg, f.logger)
	f.createdLock.Lock()
	f.created = append(f.created, judge)
	f.createdLock.Unlock()

	f.logger.Message(ctx, logging.LevelDebug, "created %s", judge.Name())
	return judge, nil
}
