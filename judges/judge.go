// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package judges scores free text with a language model acting as a judge.
// A judge rates how well a text meets a criterion, or how close it is to a ground truth,
// and returns the score with a reason that the aggregating test runner can consume directly.
package judges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
	"github.com/petmal/stattest/providers"
	"github.com/petmal/stattest/runners"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// defaultRetryDelay is used when retries are enabled without an initial delay.
const defaultRetryDelay = time.Second

var (
	// ErrInvalidSelector is returned when neither or both of criterion and ground truth are given without a custom template.
	ErrInvalidSelector = fmt.Errorf("%w: invalid judge selector", runners.ErrConfiguration)
	// ErrInvalidTemplate is returned when a custom prompt template cannot be rendered.
	ErrInvalidTemplate = fmt.Errorf("%w: invalid judge prompt template", runners.ErrConfiguration)
	// ErrParseScore is returned when no numeric score can be extracted from the judge model's reply.
	ErrParseScore = fmt.Errorf("%w: failed to parse score", runners.ErrRunFailed)
	// ErrEmptyResponse is returned when the judge model replies with no content.
	ErrEmptyResponse = fmt.Errorf("%w: received empty response from judge", runners.ErrRunFailed)
)

// Assessment is the outcome of a single judge evaluation.
type Assessment struct {
	// Score rates the text, nominally between 0.0 and 1.0. It is not clamped.
	Score float64
	// Reason describes the inputs the score was produced for.
	Reason string
}

// ScoreReason returns the score and the reason, letting an assessment be returned from a runner body as is.
func (a Assessment) ScoreReason() (float64, string) {
	return a.Score, a.Reason
}

// Option selects what a text is judged against.
type Option func(*request)

type request struct {
	criterion   string
	groundTruth string
	template    string
}

// Criterion judges how well the text meets the given criterion.
func Criterion(criterion string) Option {
	return func(q *request) {
		q.criterion = criterion
	}
}

// GroundTruth judges how similar the text is to the given ground truth.
func GroundTruth(groundTruth string) Option {
	return func(q *request) {
		q.groundTruth = groundTruth
	}
}

// Template replaces the default instructions with a custom text/template.
// The template may refer to {{.Criterion}} and {{.GroundTruth}}.
func Template(template string) Option {
	return func(q *request) {
		q.template = template
	}
}

// Judge evaluates text with a chat model.
type Judge struct {
	provider       providers.Provider
	run            config.RunConfig
	responseFormat string
	limiter        *rate.Limiter
	retryDelay     time.Duration
	logger         logging.Logger
}

// New creates a judge that sends its requests through the given provider.
// Rate limiting is applied based on the run configuration's MaxRequestsPerMinute setting.
func New(provider providers.Provider, cfg config.JudgeConfig, logger logging.Logger) *Judge {
	var limiter *rate.Limiter
	if cfg.Run.MaxRequestsPerMinute > 0 {
		// Allow a burst up to the per-minute limit.
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Run.MaxRequestsPerMinute)), cfg.Run.MaxRequestsPerMinute)
	}
	retryDelay := time.Duration(cfg.Run.RetryPolicy.InitialDelaySeconds) * time.Second
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Judge{
		provider:       provider,
		run:            cfg.Run,
		responseFormat: cfg.GetResponseFormat(),
		limiter:        limiter,
		retryDelay:     retryDelay,
		logger:         logger.WithContext(fmt.Sprintf("[judge %s] ", provider.Name())),
	}
}

// Name returns a descriptive name of the judge.
func (j *Judge) Name() string {
	return fmt.Sprintf("%s (%s) judge", j.provider.Name(), j.run.Model)
}

// Evaluate scores the text against exactly one of a criterion or a ground truth,
// or against a custom template which may use both.
// Selector errors wrap runners.ErrConfiguration; unparseable replies wrap runners.ErrRunFailed.
func (j *Judge) Evaluate(ctx context.Context, text string, opts ...Option) (assessment Assessment, err error) {
	var q request
	for _, opt := range opts {
		opt(&q)
	}

	sel, err := q.resolve()
	if err != nil {
		return assessment, err
	}
	system, err := q.systemPrompt(sel, j.responseFormat)
	if err != nil {
		return assessment, err
	}

	result, err := j.complete(ctx, providers.Prompt{System: system, User: text})
	if err != nil {
		return assessment, fmt.Errorf("judge evaluation failed: %w", err)
	}
	j.logUsage(ctx, result)

	score, explanation, err := parseReply(result.Content, j.responseFormat)
	if err != nil {
		return assessment, err
	}

	assessment = Assessment{
		Score:  score,
		Reason: explain(sel, q, text, score, explanation),
	}
	j.logger.Message(ctx, logging.LevelDebug, "%s: %s", sel, assessment.Reason)
	return assessment, nil
}

// Close releases the provider used by the judge.
func (j *Judge) Close(ctx context.Context) error {
	if j.provider != nil {
		return j.provider.Close(ctx)
	}
	return nil
}

func (j *Judge) complete(ctx context.Context, prompt providers.Prompt) (providers.Result, error) {
	if j.run.RetryPolicy.MaxRetryAttempts > 0 { // check if retry is enabled
		backoff := retry.NewExponential(j.retryDelay)
		backoff = retry.WithMaxRetries(uint64(j.run.RetryPolicy.MaxRetryAttempts), backoff)

		return retry.DoValue(ctx, backoff, func(ctx context.Context) (result providers.Result, err error) {
			result, err = j.send(ctx, prompt)
			if errors.Is(err, providers.ErrRetryable) {
				j.logger.Message(ctx, logging.LevelWarn, "retrying after transient error: %v", err)
				return result, retry.RetryableError(err)
			}
			return result, err
		})
	}
	return j.send(ctx, prompt) // no retries enabled, run only once
}

func (j *Judge) send(ctx context.Context, prompt providers.Prompt) (result providers.Result, err error) {
	if err := ctx.Err(); err != nil { // canceled or timed out
		return result, err
	}

	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return result, err
		}
	}

	return j.provider.Complete(ctx, j.logger, j.run, prompt)
}

func (j *Judge) logUsage(ctx context.Context, result providers.Result) {
	usage := result.GetUsage()
	j.logger.Message(ctx, logging.LevelTrace, "prompts:\n%s", logging.FormatLogText(result.GetPrompts()))
	j.logger.Message(ctx, logging.LevelDebug, "completed in %s; input tokens: %s; output tokens: %s",
		result.GetDuration(), logging.FormatLogInt64(usage.InputTokens), logging.FormatLogInt64(usage.OutputTokens))
}
