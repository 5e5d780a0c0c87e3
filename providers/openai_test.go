// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionsPath = "/chat/completions"

const mockChatCompletion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"logprobs": null,
		"message": {"role": "assistant", "content": " 0.85\n", "refusal": null}
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func newMockOpenAI(t *testing.T, responses ...testutils.MockHTTPResponse) (*OpenAI, *testutils.MockServer) {
	server := testutils.CreateMockServer(t, map[string][]testutils.MockHTTPResponse{
		chatCompletionsPath: responses,
	})
	return NewOpenAI(config.OpenAIClientConfig{APIKey: "test-key", Endpoint: server.URL}), server
}

func TestOpenAIComplete(t *testing.T) {
	provider, server := newMockOpenAI(t, testutils.MockHTTPResponse{
		StatusCode: http.StatusOK,
		Content:    []byte(mockChatCompletion),
	})

	cfg := config.RunConfig{
		Model: "gpt-4o",
		ModelParams: config.ModelParams{
			Temperature: testutils.Ptr(float32(0.5)),
			MaxTokens:   testutils.Ptr(int32(16)),
		},
	}
	result, err := provider.Complete(t.Context(), testutils.NewTestLogger(t), cfg, Prompt{System: "judge this", User: "some text"})
	require.NoError(t, err)

	assert.Equal(t, "0.85", result.Content)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, []string{"judge this", "some text"}, result.GetPrompts())
	require.NotNil(t, result.GetUsage().InputTokens)
	assert.Equal(t, int64(12), *result.GetUsage().InputTokens)
	assert.Equal(t, int64(3), *result.GetUsage().OutputTokens)

	requests := server.Requests(chatCompletionsPath)
	require.Len(t, requests, 1)

	var body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_completion_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(requests[0], &body))
	assert.Equal(t, "gpt-4o", body.Model)
	assert.InDelta(t, 0.5, body.Temperature, 1e-6)
	assert.Equal(t, 16, body.MaxTokens)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "judge this", body.Messages[0].Content)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Equal(t, "some text", body.Messages[1].Content)
}

func TestOpenAICompleteWithoutSystemPrompt(t *testing.T) {
	provider, server := newMockOpenAI(t, testutils.MockHTTPResponse{
		StatusCode: http.StatusOK,
		Content:    []byte(mockChatCompletion),
	})

	result, err := provider.Complete(t.Context(), testutils.NewTestLogger(t), config.RunConfig{Model: "gpt-4o"}, Prompt{User: "only user"})
	require.NoError(t, err)
	assert.Equal(t, []string{"only user"}, result.GetPrompts())

	requests := server.Requests(chatCompletionsPath)
	require.Len(t, requests, 1)
	testutils.AssertContainsNone(t, string(requests[0]), []string{`"system"`})
}

func TestOpenAICompleteErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, server := newMockOpenAI(t, testutils.MockHTTPResponse{
				StatusCode: tt.status,
				Content:    []byte(`{"error": {"message": "request rejected", "type": "test_error", "param": null, "code": "test"}}`),
			})

			_, err := provider.Complete(t.Context(), testutils.NewTestLogger(t), config.RunConfig{Model: "gpt-4o"}, Prompt{User: "text"})
			require.ErrorIs(t, err, ErrGenerateResponse)
			assert.Equal(t, tt.wantRetryable, errors.Is(err, ErrRetryable))

			var apiErr *ErrAPIResponse
			require.ErrorAs(t, err, &apiErr)
			assert.Contains(t, string(apiErr.Body), "request rejected")
			assert.Len(t, server.Requests(chatCompletionsPath), 1)
		})
	}
}
