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

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/logging"
	"google.golang.org/genai"
)

// NewGoogleAI creates a new GoogleAI provider instance with the given configuration.
// It returns an error if client initialization fails.
func NewGoogleAI(ctx context.Context, cfg config.GoogleAIClientConfig) (*GoogleAI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateClient, err)
	}
	return &GoogleAI{
		client: client,
	}, nil
}

// GoogleAI implements the Provider interface for Google AI generative models.
type GoogleAI struct {
	client *genai.Client
}

func (o GoogleAI) Name() string {
	return config.GOOGLE
}

func (o *GoogleAI) Complete(ctx context.Context, logger logging.Logger, cfg config.RunConfig, prompt Prompt) (result Result, err error) {
	generateConfig := &genai.GenerateContentConfig{
		CandidateCount: 1,
		Temperature:    genai.Ptr(cfg.ModelParams.GetTemperature()),
	}
	if cfg.ModelParams.MaxTokens != nil {
		generateConfig.MaxOutputTokens = *cfg.ModelParams.MaxTokens
	}
	if prompt.System != "" {
		generateConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(result.recordPrompt(prompt.System))},
		}
	}
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(result.recordPrompt(prompt.User))},
		},
	}

	resp, err := timed(func() (*genai.GenerateContentResponse, error) {
		response, err := o.client.Models.GenerateContent(ctx, cfg.Model, contents, generateConfig)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				err = NewErrAPIResponse(err, []byte(apiErr.Message))
				if isTransientStatus(apiErr.Code) {
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
		if resp.UsageMetadata != nil {
			recordUsage(&resp.UsageMetadata.PromptTokenCount, &resp.UsageMetadata.CandidatesTokenCount, &result.usage)
		}
		if len(resp.Candidates) > 0 {
			candidate := resp.Candidates[0]
			if candidate.Content != nil {
				var content strings.Builder
				for _, part := range candidate.Content.Parts {
					content.WriteString(part.Text)
				}
				result.Content = strings.TrimSpace(content.String())
			}
			result.FinishReason = string(candidate.FinishReason)
			logger.Message(ctx, logging.LevelTrace, "%s: finish reason: %s", o.Name(), result.FinishReason)
		}
	}

	return result, nil
}

func (o *GoogleAI) Close(ctx context.Context) error {
	return nil
}
