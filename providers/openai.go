// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
)

// NewOpenAI creates a new OpenAI provider instance with the given configuration.
func NewOpenAI(cfg config.OpenAIClientConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return newOpenAI(config.OPENAI, opts...)
}

// NewAzureOpenAI creates a new provider instance for an Azure OpenAI resource.
// The model of a run configuration names the deployment.
func NewAzureOpenAI(cfg config.AzureOpenAIClientConfig) *OpenAI {
	return newOpenAI(config.AZUREOPENAI,
		azure.WithEndpoint(cfg.Endpoint, cfg.GetAPIVersion()),
		azure.WithAPIKey(cfg.APIKey),
	)
}

func newOpenAI(name string, opts ...option.RequestOption) *OpenAI {
	clientOpts := append([]option.RequestOption{
		option.WithMaxRetries(0), // disable SDK retries since the judge has its own retry policy
	}, opts...)

	return &OpenAI{
		name:   name,
		client: openai.NewClient(clientOpts...),
	}
}

// OpenAI implements the Provider interface for OpenAI and Azure OpenAI chat models.
type OpenAI struct {
	name   string
	client openai.Client
}

func (o OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) Complete(ctx context.Context, logger logging.Logger, cfg config.RunConfig, prompt Prompt) (result Result, err error) {
	request := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(cfg.Model),
		Messages:    []openai.ChatCompletionMessageParamUnion{},
		N:           param.NewOpt(int64(1)), // generate only one candidate response
		Temperature: param.NewOpt(float64(cfg.ModelParams.GetTemperature())),
	}
	if cfg.ModelParams.MaxTokens != nil {
		request.MaxCompletionTokens = param.NewOpt(int64(*cfg.ModelParams.MaxTokens))
	}
	if prompt.System != "" {
		request.Messages = append(request.Messages, openai.SystemMessage(result.recordPrompt(prompt.System)))
	}
	request.Messages = append(request.Messages, openai.UserMessage(result.recordPrompt(prompt.User)))

	resp, err := timed(func() (*openai.ChatCompletion, error) {
		response, err := o.client.Chat.Completions.New(ctx, request)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) {
				err = NewErrAPIResponse(err, []byte(apiErr.RawJSON()))
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

	recordUsage(&resp.Usage.PromptTokens, &resp.Usage.CompletionTokens, &result.usage)
	if len(resp.Choices) > 0 {
		result.Content = strings.TrimSpace(resp.Choices[0].Message.Content)
		result.FinishReason = resp.Choices[0].FinishReason
		logger.Message(ctx, logging.LevelTrace, "%s: finish reason: %s", o.name, result.FinishReason)
	}
	return result, nil
}

func (o *OpenAI) Close(ctx context.Context) error {
	return nil
}
