// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package config contains the data models describing how the stattest judge connects
// to its language model. Settings are loaded either from environment variables
// (optionally seeded from a .env file) or from a YAML file, and validated before use.
package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// OPENAI identifies the OpenAI provider.
	OPENAI string = "openai"
	// AZUREOPENAI identifies the Azure OpenAI provider.
	AZUREOPENAI string = "azure-openai"
	// GOOGLE identifies the Google AI provider.
	GOOGLE string = "google"
	// ANTHROPIC identifies the Anthropic provider.
	ANTHROPIC string = "anthropic"
	// DEEPSEEK identifies the DeepSeek provider.
	DEEPSEEK string = "deepseek"
)

const (
	// ScoreResponseFormat asks the judge model to reply with a single number.
	ScoreResponseFormat string = "score"
	// JSONResponseFormat asks the judge model to reply with a JSON object holding a score and an explanation.
	JSONResponseFormat string = "json"
)

const (
	// DefaultModel is the judge model used for OpenAI compatible providers when none is configured.
	DefaultModel = "gpt-4o"
	// DefaultAzureAPIVersion is the Azure OpenAI API version used when none is configured.
	DefaultAzureAPIVersion = "2024-10-21"
)

// ErrInvalidConfigProperty indicates invalid configuration.
var ErrInvalidConfigProperty = errors.New("invalid configuration property")

// Config represents the top-level configuration structure.
type Config struct {
	// LogFile specifies path to the log file.
	LogFile string `yaml:"log-file" validate:"omitempty,filepath"`

	// Judge configures the language model used to score text.
	Judge JudgeConfig `yaml:"judge" validate:"required"`
}

// JudgeConfig defines how the judge talks to its model.
type JudgeConfig struct {
	// Provider selects and configures the model provider.
	Provider ProviderConfig `yaml:"provider" validate:"required"`

	// Run holds the model and request settings.
	Run RunConfig `yaml:"run" validate:"required"`

	// ResponseFormat selects how the model is asked to reply.
	// Valid values are: "score" (default), "json".
	ResponseFormat string `yaml:"response-format" validate:"omitempty,oneof=score json"`
}

// GetResponseFormat returns the configured response format, defaulting to ScoreResponseFormat.
func (jc JudgeConfig) GetResponseFormat() string {
	if jc.ResponseFormat == "" {
		return ScoreResponseFormat
	}
	return jc.ResponseFormat
}

// ProviderConfig defines settings for a model provider.
type ProviderConfig struct {
	// Name specifies the provider.
	Name string `yaml:"name" validate:"required,oneof=openai azure-openai google anthropic deepseek"`

	// ClientConfig holds provider-specific client settings.
	ClientConfig ClientConfig `yaml:"client-config" validate:"required"`
}

// ClientConfig is a marker interface for provider-specific configurations.
type ClientConfig interface{}

// OpenAIClientConfig represents OpenAI provider settings.
type OpenAIClientConfig struct {
	// APIKey is the API key for the OpenAI provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint overrides the base URL of the API.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// AzureOpenAIClientConfig represents Azure OpenAI provider settings.
type AzureOpenAIClientConfig struct {
	// APIKey is the API key of the Azure OpenAI resource.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint is the endpoint URL of the Azure OpenAI resource.
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api-version" validate:"omitempty"`
}

// GetAPIVersion returns the API version, defaulting to DefaultAzureAPIVersion if not specified.
func (c AzureOpenAIClientConfig) GetAPIVersion() string {
	if c.APIVersion == "" {
		return DefaultAzureAPIVersion
	}
	return c.APIVersion
}

// GoogleAIClientConfig represents Google AI provider settings.
type GoogleAIClientConfig struct {
	// APIKey is the API key for the Google AI generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint overrides the base URL of the API.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// AnthropicClientConfig represents Anthropic provider settings.
type AnthropicClientConfig struct {
	// APIKey is the API key for the Anthropic generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint overrides the base URL of the API.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// RequestTimeout specifies the timeout for API requests.
	RequestTimeout *time.Duration `yaml:"request-timeout" validate:"omitempty"`
}

// DeepseekClientConfig represents DeepSeek provider settings.
type DeepseekClientConfig struct {
	// APIKey is the API key for the DeepSeek generative models provider.
	APIKey string `yaml:"api-key" validate:"required"`
	// Endpoint overrides the base URL of the API, including the trailing slash.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// RequestTimeout specifies the timeout for API requests.
	RequestTimeout *time.Duration `yaml:"request-timeout" validate:"omitempty"`
}

// RunConfig defines the model and request settings of the judge.
type RunConfig struct {
	// Model specifies target model's identifier.
	Model string `yaml:"model" validate:"required"`

	// MaxRequestsPerMinute limits the number of API requests per minute sent to the model.
	// Value of 0 means no rate limiting will be applied.
	MaxRequestsPerMinute int `yaml:"max-requests-per-minute" validate:"omitempty,numeric,min=0"`

	// ModelParams holds model parameters shared by all providers.
	ModelParams ModelParams `yaml:"model-parameters" validate:"omitempty"`

	// RetryPolicy specifies retry behavior on transient errors.
	RetryPolicy RetryPolicy `yaml:"retry-policy" validate:"omitempty"`
}

// RetryPolicy defines retry behavior on transient errors.
type RetryPolicy struct {
	// MaxRetryAttempts specifies the maximum number of retry attempts.
	// Value of 0 means no retry attempts will be made.
	MaxRetryAttempts uint `yaml:"max-retry-attempts" validate:"omitempty,min=0"`

	// InitialDelaySeconds specifies the initial delay in seconds before the first retry attempt.
	InitialDelaySeconds int `yaml:"initial-delay-seconds" validate:"omitempty,gt=0"`
}

// ModelParams represents the sampling settings sent with every judge request.
type ModelParams struct {
	// Temperature controls the randomness of the model's outputs.
	// The judge uses 0.0 when not specified.
	Temperature *float32 `yaml:"temperature" validate:"omitempty,min=0,max=2"`

	// MaxTokens limits the length of the model's reply.
	MaxTokens *int32 `yaml:"max-tokens" validate:"omitempty,min=1"`
}

// GetTemperature returns the configured temperature, or 0 if not specified.
func (mp ModelParams) GetTemperature() float32 {
	if mp.Temperature != nil {
		return *mp.Temperature
	}
	return 0
}

// UnmarshalYAML implements custom YAML unmarshaling for ProviderConfig.
// It handles provider-specific client configuration based on provider name.
func (pc *ProviderConfig) UnmarshalYAML(value *yaml.Node) error {
	var temp struct {
		Name         string    `yaml:"name"`
		ClientConfig yaml.Node `yaml:"client-config"`
	}

	if err := value.Decode(&temp); err != nil {
		return err
	}

	pc.Name = NormalizeProviderName(temp.Name)
	cfg, err := newClientConfig(pc.Name)
	if err != nil {
		return err
	}
	if !temp.ClientConfig.IsZero() {
		if err := temp.ClientConfig.Decode(cfg); err != nil {
			return err
		}
	}
	pc.ClientConfig = deref(cfg)
	return nil
}

func newClientConfig(provider string) (any, error) {
	switch provider {
	case OPENAI:
		return &OpenAIClientConfig{}, nil
	case AZUREOPENAI:
		return &AzureOpenAIClientConfig{}, nil
	case GOOGLE:
		return &GoogleAIClientConfig{}, nil
	case ANTHROPIC:
		return &AnthropicClientConfig{}, nil
	case DEEPSEEK:
		return &DeepseekClientConfig{}, nil
	}
	return nil, fmt.Errorf("%w: unknown client-config for provider: %s", ErrInvalidConfigProperty, provider)
}

func deref(cfg any) ClientConfig {
	switch c := cfg.(type) {
	case *OpenAIClientConfig:
		return *c
	case *AzureOpenAIClientConfig:
		return *c
	case *GoogleAIClientConfig:
		return *c
	case *AnthropicClientConfig:
		return *c
	case *DeepseekClientConfig:
		return *c
	}
	return cfg
}

// NormalizeProviderName maps provider names in legacy spelling onto their canonical identifiers.
func NormalizeProviderName(name string) string {
	switch name {
	case "OpenAI":
		return OPENAI
	case "AzureOpenAI":
		return AZUREOPENAI
	}
	return name
}
