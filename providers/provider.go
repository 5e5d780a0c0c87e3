// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package providers implements the chat completion connectors used by the stattest judge.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
	"golang.org/x/exp/constraints"
)

// defaultMaxTokens limits replies for providers that require an explicit limit.
const defaultMaxTokens = 1024

var (
	// ErrUnknownProviderName is returned when provider name is not recognized.
	ErrUnknownProviderName = errors.New("unknown provider name")
	// ErrCreateClient is returned when provider client initialization fails.
	ErrCreateClient = errors.New("failed to create client")
	// ErrGenerateResponse is returned when response generation fails.
	ErrGenerateResponse = errors.New("failed to generate response")
	// ErrRetryable is returned when an operation can be retried.
	ErrRetryable = errors.New("retryable error")
)

// Provider interacts with chat completion services.
type Provider interface {
	// Name returns the provider's unique identifier.
	Name() string
	// Complete sends a single-turn prompt using the specified configuration and returns the reply.
	Complete(ctx context.Context, logger logging.Logger, cfg config.RunConfig, prompt Prompt) (result Result, err error)
	// Close releases resources when the provider is no longer needed.
	Close(ctx context.Context) error
}

// Prompt is a single-turn chat request.
type Prompt struct {
	// System holds the instructions sent as the system message.
	System string
	// User holds the content sent as the user message.
	User string
}

// ErrAPIResponse holds additional information about an API error returned
// by a provider, including the raw HTTP response body when available.
type ErrAPIResponse struct {
	// Cause is the underlying error that caused the API call to fail.
	Cause error
	// Body contains the raw HTTP response body returned by the provider API when available.
	Body []byte
}

func (e *ErrAPIResponse) Error() string {
	return e.Cause.Error()
}

func (e *ErrAPIResponse) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewErrAPIResponse creates a new ErrAPIResponse instance.
func NewErrAPIResponse(cause error, body []byte) *ErrAPIResponse {
	return &ErrAPIResponse{Cause: cause, Body: body}
}

// WrapErrRetryable wraps an error as retryable, preserving the original error chain.
func WrapErrRetryable(err error) error {
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// WrapErrGenerateResponse wraps an error as a generate response error, preserving the original error chain.
func WrapErrGenerateResponse(err error) error {
	return fmt.Errorf("%w: %w", ErrGenerateResponse, err)
}

// Usage represents the token usage statistics for a response.
type Usage struct {
	InputTokens  *int64 // Tokens used by the input if available.
	OutputTokens *int64 // Tokens used by the output if available.
}

// Result represents the reply received from a chat model.
type Result struct {
	// Content is the text of the reply.
	Content string
	// FinishReason tells why the model stopped generating, as reported by the provider.
	FinishReason string
	duration     time.Duration // Time to generate the response.
	prompts      []string      // Prompts used to generate the response.
	usage        Usage         // Token usage statistics.
}

// GetDuration returns the time duration it took to generate this result.
func (r Result) GetDuration() time.Duration {
	return r.duration
}

// GetPrompts returns the prompts used to generate this result.
func (r Result) GetPrompts() []string {
	return r.prompts
}

// GetUsage returns the token usage statistics for this result.
func (r Result) GetUsage() Usage {
	return r.usage
}

func timed[T any](f func() (T, error), out *time.Duration) (response T, err error) {
	start := time.Now()
	response, err = f()
	*out = time.Since(start)
	return
}

func (r *Result) recordPrompt(prompt string) string {
	if prompt != "" {
		r.prompts = append(r.prompts, prompt)
	}
	return prompt
}

func recordUsage[T constraints.Signed](inputTokens *T, outputTokens *T, out *Usage) {
	addIfNotNil(&out.InputTokens, inputTokens)
	addIfNotNil(&out.OutputTokens, outputTokens)
}

func addIfNotNil[D ~int64, S constraints.Signed](dst **D, src *S) {
	if src != nil {
		if *dst == nil {
			*dst = new(D)
		}
		**dst += D(*src)
	}
}

func isTransientStatus(statusCode int) bool {
	return slices.Contains([]int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	}, statusCode)
}
