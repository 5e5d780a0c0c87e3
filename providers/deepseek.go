// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	deepseek "github.com/cohesion-org/deepseek-go"
	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
)

// NewDeepseek creates a new Deepseek provider instance with the given configuration.
// It returns an error if client initialization fails.
func NewDeepseek(cfg config.DeepseekClientConfig) (*Deepseek, error) {
	opts := make([]deepseek.Option, 0)
	if cfg.Endpoint != "" {
		opts = append(opts, deepseek.WithBaseURL(cfg.Endpoint))
	}
	if cfg.RequestTimeout != nil {
		opts = append(opts, deepseek.WithTimeout(*cfg.RequestTimeout))
	}
	client, err := deepseek.NewClientWithOptions(cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	return &Deepseek{
		client: client,
	}, nil
}

// Deepseek implements the Provider interface for Deepseek generative models.
type Deepseek struct {
	client *deepseek.Client
}

func (o Deepseek) Name() string {
	return config.DEEPSEEK
}

func (o *Deepseek) Complete(ctx context.Context, logger logging.Logger, cfg config.RunConfig, prompt Prompt) (result Result, err error) {
	request := &deepseek.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: cfg.ModelParams.GetTemperature(),
	}
	if cfg.ModelParams.MaxTokens != nil {
		request.MaxTokens = int(*cfg.ModelParams.MaxTokens)
	}
	if prompt.System != "" {
		request.Messages = append(request.Messages, deepseek.ChatCompletionMessage{
			Role:    deepseek.ChatMessageRoleSystem,
			Content: result.recordPrompt(prompt.System),
		})
	}
	request.Messages = append(request.Messages, deepseek.ChatCompletionMessage{
		Role:    deepseek.ChatMessageRoleUser,
		Content: result.recordPrompt(prompt.User),
	})

	resp, err := timed(func() (*deepseek.ChatCompletionResponse, error) {
		response, err := o.client.CreateChatCompletion(ctx, request)
		if err != nil {
			var apiErr *deepseek.APIError
			if errors.As(err, &apiErr) {
				err = NewErrAPIResponse(err, []byte(apiErr.ResponseBody))
				if isTransientStatus(apiErr.StatusCode) {
					return response, WrapErrRetryable(err)
				}
			}
		}
		return response, err
	}, &result.duration)
	if err != nil {
		return result, WrapErrGenerateResponse(err)
	}

	if resp != nil {
		recordUsage(&resp.Usage.PromptTokens, &resp.Usage.CompletionTokens, &result.usage)
		if len(resp.Choices) > 0 {
			result.Content = strings.TrimSpace(resp.Choices[0].Message.Content)
			result.FinishReason = resp.Choices[0].FinishReason
			logger.Message(ctx, logging.LevelTrace, "%s: finish reason: %s", o.Name(), result.FinishReason)
		}
	}

	return result, nil
}

func (o *Deepseek) Close(ctx context.Context) error {
	return nil
}
