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

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
)

// NewAnthropic creates a new Anthropic provider instance with the given configuration.
func NewAnthropic(cfg config.AnthropicClientConfig) *Anthropic {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.Endpoint))
	}
	if cfg.RequestTimeout != nil {
		opts = append(opts, anthropicoption.WithRequestTimeout(*cfg.RequestTimeout))
	}
	return &Anthropic{
		client: anthropic.NewClient(opts...),
	}
}

// Anthropic implements the Provider interface for Anthropic generative models.
type Anthropic struct {
	client anthropic.Client
}

func (o Anthropic) Name() string {
	return config.ANTHROPIC
}

func (o *Anthropic) Complete(ctx context.Context, logger logging.Logger, cfg config.RunConfig, prompt Prompt) (result Result, err error) {
	request := anthropic.MessageNewParams{
		MaxTokens:   defaultMaxTokens,
		Model:       anthropic.Model(cfg.Model),
		Temperature: anthropic.Float(float64(cfg.ModelParams.GetTemperature())),
	}
	if cfg.ModelParams.MaxTokens != nil {
		request.MaxTokens = int64(*cfg.ModelParams.MaxTokens)
	}
	if prompt.System != "" {
		request.System = []anthropic.TextBlockParam{
			{Text: result.recordPrompt(prompt.System)},
		}
	}
	request.Messages = []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(result.recordPrompt(prompt.User))),
	}

	resp, err := timed(func() (*anthropic.Message, error) {
		response, err := o.client.Messages.New(ctx, request)
		if err != nil {
			var apiErr *anthropic.Error
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
	} else if resp == nil {
		return result, nil
	}

	recordUsage(&resp.Usage.InputTokens, &resp.Usage.OutputTokens, &result.usage)
	var content strings.Builder
	for _, block := range resp.Content {
		switch block := block.AsAny().(type) { //nolint:gocritic
		case anthropic.TextBlock:
			content.WriteString(block.Text)
		}
	}
	result.Content = strings.TrimSpace(content.String())
	result.FinishReason = string(resp.StopReason)
	logger.Message(ctx, logging.LevelTrace, "%s: stop reason: %s", o.Name(), result.FinishReason)
	return result, nil
}

func (o *Anthropic) Close(ctx context.Context) error {
	return nil
}
