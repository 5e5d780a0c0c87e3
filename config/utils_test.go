// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petmal/stattest/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr string
	}{
		{
			name: "openai judge",
			content: `
judge:
  provider:
    name: openai
    client-config:
      api-key: sk-test
  run:
    model: gpt-4o-mini
    max-requests-per-minute: 30
    model-parameters:
      temperature: 0.2
    retry-policy:
      max-retry-attempts: 3
      initial-delay-seconds: 2
`,
			want: &Config{
				Judge: JudgeConfig{
					Provider: ProviderConfig{Name: OPENAI, ClientConfig: OpenAIClientConfig{APIKey: "sk-test"}},
					Run: RunConfig{
						Model:                "gpt-4o-mini",
						MaxRequestsPerMinute: 30,
						ModelParams:          ModelParams{Temperature: testutils.Ptr(float32(0.2))},
						RetryPolicy:          RetryPolicy{MaxRetryAttempts: 3, InitialDelaySeconds: 2},
					},
				},
			},
		},
		{
			name: "azure judge with legacy provider name",
			content: `
log-file: judge.log
judge:
  response-format: json
  provider:
    name: AzureOpenAI
    client-config:
      api-key: azure-key
      endpoint: https://example.openai.azure.com
  run:
    model: gpt-4o
`,
			want: &Config{
				LogFile: "judge.log",
				Judge: JudgeConfig{
					ResponseFormat: JSONResponseFormat,
					Provider: ProviderConfig{Name: AZUREOPENAI, ClientConfig: AzureOpenAIClientConfig{
						APIKey:   "azure-key",
						Endpoint: "https://example.openai.azure.com",
					}},
					Run: RunConfig{Model: "gpt-4o"},
				},
			},
		},
		{
			name: "anthropic judge with timeout",
			content: `
judge:
  provider:
    name: anthropic
    client-config:
      api-key: anthropic-key
      request-timeout: 30s
  run:
    model: claude-sonnet
`,
			want: &Config{
				Judge: JudgeConfig{
					Provider: ProviderConfig{Name: ANTHROPIC, ClientConfig: AnthropicClientConfig{
						APIKey:         "anthropic-key",
						RequestTimeout: testutils.Ptr(30 * time.Second),
					}},
					Run: RunConfig{Model: "claude-sonnet"},
				},
			},
		},
		{
			name: "unknown provider",
			content: `
judge:
  provider:
    name: unknown
    client-config:
      api-key: key
  run:
    model: m
`,
			wantErr: "unknown client-config for provider: unknown",
		},
		{
			name: "unknown field",
			content: `
judge:
  provider:
    name: openai
    client-config:
      api-key: key
  run:
    model: m
    temperature: 1
`,
			wantErr: "malformed configuration file",
		},
		{
			name: "missing api key",
			content: `
judge:
  provider:
    name: google
    client-config: {}
  run:
    model: gemini
`,
			wantErr: "invalid configuration definition",
		},
		{
			name: "missing azure endpoint",
			content: `
judge:
  provider:
    name: azure-openai
    client-config:
      api-key: key
  run:
    model: gpt-4o
`,
			wantErr: "invalid configuration definition",
		},
		{
			name: "invalid response format",
			content: `
judge:
  response-format: xml
  provider:
    name: deepseek
    client-config:
      api-key: key
  run:
    model: deepseek-chat
`,
			wantErr: "invalid configuration definition",
		},
		{
			name: "temperature out of range",
			content: `
judge:
  provider:
    name: openai
    client-config:
      api-key: key
  run:
    model: gpt-4o
    model-parameters:
      temperature: 3
`,
			wantErr: "invalid configuration definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutils.CreateMockFile(t, "config-*.yaml", []byte(tt.content))
			got, err := LoadConfigFromFile(context.Background(), path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigFromFileMissing(t *testing.T) {
	_, err := LoadConfigFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "failed to open configuration file")
}

var environment = []string{
	EnvProvider, EnvLegacyProvider, EnvAPIKey, EnvAnthropicAPIKey, EnvGoogleAPIKey, EnvDeepseekAPIKey,
	EnvEndpoint, EnvAPIVersion, EnvModel, EnvMaxRequestsPerMin, EnvMaxRetryAttempts, EnvRetryInitialDelay,
	EnvResponseFormat, EnvTemperature, EnvLogFile,
}

func clearEnvironment(t *testing.T) {
	for _, name := range environment {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr error
	}{
		{
			name: "openai defaults",
			env:  map[string]string{EnvAPIKey: "sk-test"},
			want: &Config{Judge: JudgeConfig{
				Provider: ProviderConfig{Name: OPENAI, ClientConfig: OpenAIClientConfig{APIKey: "sk-test"}},
				Run:      RunConfig{Model: DefaultModel},
			}},
		},
		{
			name: "legacy azure provider",
			env: map[string]string{
				EnvLegacyProvider: "AzureOpenAI",
				EnvAPIKey:         "azure-key",
				EnvEndpoint:       "https://example.openai.azure.com",
				EnvModel:          "gpt-4o-mini",
			},
			want: &Config{Judge: JudgeConfig{
				Provider: ProviderConfig{Name: AZUREOPENAI, ClientConfig: AzureOpenAIClientConfig{
					APIKey:     "azure-key",
					Endpoint:   "https://example.openai.azure.com",
					APIVersion: DefaultAzureAPIVersion,
				}},
				Run: RunConfig{Model: "gpt-4o-mini"},
			}},
		},
		{
			name: "provider takes precedence over legacy provider",
			env: map[string]string{
				EnvProvider:          "anthropic",
				EnvLegacyProvider:    "OpenAI",
				EnvAnthropicAPIKey:   "anthropic-key",
				EnvModel:             "claude-sonnet",
				EnvMaxRequestsPerMin: "60",
				EnvMaxRetryAttempts:  "2",
				EnvRetryInitialDelay: "5",
				EnvResponseFormat:    "json",
				EnvTemperature:       "0.5",
			},
			want: &Config{Judge: JudgeConfig{
				ResponseFormat: JSONResponseFormat,
				Provider:       ProviderConfig{Name: ANTHROPIC, ClientConfig: AnthropicClientConfig{APIKey: "anthropic-key"}},
				Run: RunConfig{
					Model:                "claude-sonnet",
					MaxRequestsPerMinute: 60,
					RetryPolicy:          RetryPolicy{MaxRetryAttempts: 2, InitialDelaySeconds: 5},
					ModelParams:          ModelParams{Temperature: testutils.Ptr(float32(0.5))},
				},
			}},
		},
		{
			name: "generic key is used as fallback",
			env:  map[string]string{EnvProvider: "deepseek", EnvAPIKey: "shared-key", EnvModel: "deepseek-chat"},
			want: &Config{Judge: JudgeConfig{
				Provider: ProviderConfig{Name: DEEPSEEK, ClientConfig: DeepseekClientConfig{APIKey: "shared-key"}},
				Run:      RunConfig{Model: "deepseek-chat"},
			}},
		},
		{
			name:    "unknown provider",
			env:     map[string]string{EnvProvider: "bedrock"},
			wantErr: ErrInvalidConfigProperty,
		},
		{
			name:    "invalid integer",
			env:     map[string]string{EnvAPIKey: "key", EnvMaxRetryAttempts: "many"},
			wantErr: ErrInvalidConfigProperty,
		},
		{
			name:    "negative retry attempts",
			env:     map[string]string{EnvAPIKey: "key", EnvMaxRetryAttempts: "-1"},
			wantErr: ErrInvalidConfigProperty,
		},
		{
			name:    "invalid temperature",
			env:     map[string]string{EnvAPIKey: "key", EnvTemperature: "warm"},
			wantErr: ErrInvalidConfigProperty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvironment(t)
			for name, value := range tt.env {
				t.Setenv(name, value)
			}

			got, err := LoadConfigFromEnv(context.Background(), filepath.Join(t.TempDir(), ".env"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing api key", env: map[string]string{}},
		{name: "missing azure endpoint", env: map[string]string{EnvProvider: "azure-openai", EnvAPIKey: "key"}},
		{name: "missing model for google", env: map[string]string{EnvProvider: "google", EnvGoogleAPIKey: "key"}},
		{name: "invalid response format", env: map[string]string{EnvAPIKey: "key", EnvResponseFormat: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvironment(t)
			for name, value := range tt.env {
				t.Setenv(name, value)
			}

			_, err := LoadConfigFromEnv(context.Background(), filepath.Join(t.TempDir(), ".env"))
			assert.ErrorContains(t, err, "invalid environment configuration")
		})
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	clearEnvironment(t)
	t.Setenv(EnvModel, "from-environment")
	path := testutils.CreateMockFile(t, "test-*.env", []byte("OPENAI_API_KEY=from-file\nOPENAI_MODEL_NAME=from-file\n"))

	got, err := LoadConfigFromEnv(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, OpenAIClientConfig{APIKey: "from-file"}, got.Judge.Provider.ClientConfig)
	assert.Equal(t, "from-environment", got.Judge.Run.Model)
}

func TestLoadConfigFromEnvDefaultFile(t *testing.T) {
	clearEnvironment(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=dotenv-key\n"), 0o600))

	testutils.WithWorkingDir(t, dir, func() {
		got, err := LoadConfigFromEnv(context.Background())
		require.NoError(t, err)
		assert.Equal(t, OpenAIClientConfig{APIKey: "dotenv-key"}, got.Judge.Provider.ClientConfig)
	})
}

func TestJudgeConfigDefaults(t *testing.T) {
	assert.Equal(t, ScoreResponseFormat, JudgeConfig{}.GetResponseFormat())
	assert.Equal(t, JSONResponseFormat, JudgeConfig{ResponseFormat: JSONResponseFormat}.GetResponseFormat())
	assert.Equal(t, DefaultAzureAPIVersion, AzureOpenAIClientConfig{}.GetAPIVersion())
	assert.Equal(t, "2025-01-01", AzureOpenAIClientConfig{APIVersion: "2025-01-01"}.GetAPIVersion())
	assert.Zero(t, ModelParams{}.GetTemperature())
	assert.InDelta(t, 0.7, ModelParams{Temperature: testutils.Ptr(float32(0.7))}.GetTemperature(), 1e-6)
}

func TestIsNotBlank(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "", want: false},
		{value: " \t\n", want: false},
		{value: "x", want: true},
		{value: "  padded  ", want: true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNotBlank(tt.value), "value %q", tt.value)
	}
}

func TestResolveFileNamePattern(t *testing.T) {
	timeRef := time.Date(2025, 3, 4, 22, 10, 5, 0, time.Local)
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{
			name:    "full date and time",
			pattern: "{{.Year}}-{{.Month}}-{{.Day}}_{{.Hour}}-{{.Minute}}-{{.Second}}",
			want:    "2025-03-04_22-10-05",
		},
		{
			name:    "no placeholders",
			pattern: "verdicts.csv",
			want:    "verdicts.csv",
		},
		{
			name:    "unknown placeholder",
			pattern: "verdicts-{{.Unknown}}.csv",
			want:    "verdicts-{{.Unknown}}.csv",
		},
		{
			name:    "invalid template",
			pattern: "verdicts-{{.Year.csv",
			want:    "verdicts-{{.Year.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFileNamePattern(tt.pattern, timeRef))
		})
	}
}

type onceKey string

func TestOnceWithContext(t *testing.T) {
	newOnceFunc := func() func(context.Context, *int) (int, error) {
		return OnceWithContext(func(ctx context.Context, state *int) (int, error) {
			if e := ctx.Value(onceKey("error")); e != nil {
				return *state, e.(error)
			} else if p := ctx.Value(onceKey("panic")); p != nil {
				panic(p.(string))
			}
			*state++
			return *state, nil
		})
	}
	ctx := context.Background()

	t.Run("with result", func(t *testing.T) {
		counter := testutils.Ptr(0)
		wrapped := newOnceFunc()
		for _, c := range []context.Context{
			ctx,
			ctx,
			context.WithValue(ctx, onceKey("error"), errors.New("mock error")),
			context.WithValue(ctx, onceKey("panic"), "mock panic"),
		} {
			got, err := wrapped(c, counter)
			require.NoError(t, err)
			require.Equal(t, 1, got)
		}
		assert.Equal(t, 1, *counter)
	})

	t.Run("with error", func(t *testing.T) {
		counter := testutils.Ptr(17)
		wantErr := errors.New("mock error")
		wrapped := newOnceFunc()
		for _, c := range []context.Context{
			context.WithValue(ctx, onceKey("error"), wantErr),
			ctx,
			context.WithValue(ctx, onceKey("panic"), "mock panic"),
		} {
			got, err := wrapped(c, counter)
			require.ErrorIs(t, err, wantErr)
			require.Equal(t, 17, got)
		}
		assert.Equal(t, 17, *counter)
	})

	t.Run("with panic", func(t *testing.T) {
		counter := testutils.Ptr(-1)
		wrapped := newOnceFunc()
		require.PanicsWithValue(t, "mock panic", func() {
			_, _ = wrapped(context.WithValue(ctx, onceKey("panic"), "mock panic"), counter)
		})
		require.PanicsWithValue(t, "mock panic", func() {
			_, _ = wrapped(ctx, counter)
		})
		assert.Equal(t, -1, *counter)
	})
}
