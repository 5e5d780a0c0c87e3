// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Environment variables read by LoadConfigFromEnv.
const (
	EnvProvider            = "STATTEST_PROVIDER"
	EnvLegacyProvider      = "OPENAI_PROVIDER"
	EnvAPIKey              = "OPENAI_API_KEY"
	EnvAnthropicAPIKey     = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey        = "GOOGLE_API_KEY"
	EnvDeepseekAPIKey      = "DEEPSEEK_API_KEY"
	EnvEndpoint            = "OPENAI_ENDPOINT"
	EnvAPIVersion          = "OPENAI_API_VERSION"
	EnvModel               = "OPENAI_MODEL_NAME"
	EnvMaxRequestsPerMin   = "STATTEST_MAX_REQUESTS_PER_MINUTE"
	EnvMaxRetryAttempts    = "STATTEST_MAX_RETRY_ATTEMPTS"
	EnvRetryInitialDelay   = "STATTEST_RETRY_INITIAL_DELAY_SECONDS"
	EnvResponseFormat      = "STATTEST_RESPONSE_FORMAT"
	EnvTemperature         = "STATTEST_TEMPERATURE"
	EnvLogFile             = "STATTEST_LOG_FILE"
	defaultEnvironmentFile = ".env"
)

// LoadConfigFromFile reads and validates application configuration from the specified file path.
// Returns error if the file cannot be read or contains invalid configuration.
func LoadConfigFromFile(ctx context.Context, path string) (*Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer fp.Close()

	fileContents, err := io.ReadAll(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg := &Config{}
	if err := yamlUnmarshalStrict(fileContents, cfg); err != nil {
		return nil, fmt.Errorf("malformed configuration file: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration definition: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromEnv builds and validates application configuration from environment variables.
// The given environment files, or ".env" if none are given, are loaded first without
// overriding variables that are already set. Missing environment files are ignored.
func LoadConfigFromEnv(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{defaultEnvironmentFile}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load environment file '%s': %w", file, err)
		}
	}

	provider := NormalizeProviderName(firstNonBlank(os.Getenv(EnvProvider), os.Getenv(EnvLegacyProvider), OPENAI))
	cfg := &Config{
		LogFile: os.Getenv(EnvLogFile),
		Judge: JudgeConfig{
			Provider:       ProviderConfig{Name: provider},
			ResponseFormat: os.Getenv(EnvResponseFormat),
		},
	}

	switch provider {
	case OPENAI:
		cfg.Judge.Provider.ClientConfig = OpenAIClientConfig{
			APIKey:   os.Getenv(EnvAPIKey),
			Endpoint: os.Getenv(EnvEndpoint),
		}
		cfg.Judge.Run.Model = firstNonBlank(os.Getenv(EnvModel), DefaultModel)
	case AZUREOPENAI:
		cfg.Judge.Provider.ClientConfig = AzureOpenAIClientConfig{
			APIKey:     os.Getenv(EnvAPIKey),
			Endpoint:   os.Getenv(EnvEndpoint),
			APIVersion: firstNonBlank(os.Getenv(EnvAPIVersion), DefaultAzureAPIVersion),
		}
		cfg.Judge.Run.Model = firstNonBlank(os.Getenv(EnvModel), DefaultModel)
	case ANTHROPIC:
		cfg.Judge.Provider.ClientConfig = AnthropicClientConfig{APIKey: firstNonBlank(os.Getenv(EnvAnthropicAPIKey), os.Getenv(EnvAPIKey))}
		cfg.Judge.Run.Model = os.Getenv(EnvModel)
	case GOOGLE:
		cfg.Judge.Provider.ClientConfig = GoogleAIClientConfig{APIKey: firstNonBlank(os.Getenv(EnvGoogleAPIKey), os.Getenv(EnvAPIKey))}
		cfg.Judge.Run.Model = os.Getenv(EnvModel)
	case DEEPSEEK:
		cfg.Judge.Provider.ClientConfig = DeepseekClientConfig{APIKey: firstNonBlank(os.Getenv(EnvDeepseekAPIKey), os.Getenv(EnvAPIKey))}
		cfg.Judge.Run.Model = os.Getenv(EnvModel)
	default:
		return nil, fmt.Errorf("%w: unknown provider: %s", ErrInvalidConfigProperty, provider)
	}

	var err error
	if cfg.Judge.Run.MaxRequestsPerMinute, err = lookupInt(EnvMaxRequestsPerMin); err != nil {
		return nil, err
	}
	attempts, err := lookupInt(EnvMaxRetryAttempts)
	if err != nil {
		return nil, err
	}
	if attempts < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidConfigProperty, EnvMaxRetryAttempts)
	}
	cfg.Judge.Run.RetryPolicy.MaxRetryAttempts = uint(attempts)
	if cfg.Judge.Run.RetryPolicy.InitialDelaySeconds, err = lookupInt(EnvRetryInitialDelay); err != nil {
		return nil, err
	}
	if value, ok := os.LookupEnv(EnvTemperature); ok && IsNotBlank(value) {
		temperature, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigProperty, EnvTemperature, err)
		}
		cfg.Judge.Run.ModelParams.Temperature = ptr(float32(temperature))
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment configuration: %w", err)
	}

	return cfg, nil
}

func lookupInt(name string) (int, error) {
	value, ok := os.LookupEnv(name)
	if !ok || !IsNotBlank(value) {
		return 0, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfigProperty, name, err)
	}
	return parsed, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if IsNotBlank(value) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func ptr[T any](value T) *T {
	return &value
}

// yamlUnmarshalStrict is a helper function for strict YAML unmarshaling that fails on unknown fields.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	// NOTE: currently does not propagate to custom unmarshalers:
	// https://github.com/go-yaml/yaml/issues/460
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true) // fail on unknown fields
	return decoder.Decode(out)
}

// IsNotBlank returns true if the given string contains non-whitespace characters.
func IsNotBlank(value string) bool {
	return len(strings.TrimSpace(value)) > 0
}

// ResolveFileNamePattern takes a filename pattern containing time placeholders and returns
// a string with the placeholders replaced by values from the given time reference.
// Supported placeholders: {{.Year}}, {{.Month}}, {{.Day}}, {{.Hour}}, {{.Minute}}, {{.Second}}.
// Returns the original pattern if it cannot be resolved.
func ResolveFileNamePattern(pattern string, timeRef time.Time) string {
	tmpl, err := template.New("filename").Parse(pattern)
	if err != nil {
		return pattern
	}
	resolved := strings.Builder{}
	if err := tmpl.Execute(&resolved, struct {
		Year   string
		Month  string
		Day    string
		Hour   string
		Minute string
		Second string
	}{
		Year:   strconv.Itoa(timeRef.Year()),
		Month:  fmt.Sprintf("%02d", int(timeRef.Month())),
		Day:    fmt.Sprintf("%02d", timeRef.Day()),
		Hour:   fmt.Sprintf("%02d", timeRef.Hour()),
		Minute: fmt.Sprintf("%02d", timeRef.Minute()),
		Second: fmt.Sprintf("%02d", timeRef.Second()),
	}); err != nil {
		return pattern
	}
	return resolved.String()
}

// OnceWithContext returns a function that invokes f only once regardless of the supplied context.
// The first call's context is used for execution, and subsequent calls simply return the cached result.
// A panic in f is re-raised on every call.
func OnceWithContext[S any, T any](f func(context.Context, *S) (T, error)) func(context.Context, *S) (T, error) {
	var (
		once  sync.Once
		valid bool
		p     any
		r     T
		err   error
	)

	g := func(ctx context.Context, state *S) {
		defer func() {
			p = recover()
			if !valid {
				panic(p)
			}
		}()
		r, err = f(ctx, state)
		f = nil // allow function to be garbage collected
		valid = true
	}

	return func(ctx context.Context, state *S) (T, error) {
		once.Do(func() { g(ctx, state) })
		if !valid {
			panic(p)
		}
		return r, err
	}
}
