// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package utils contains helpers for handling structured replies of language models.
package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrInvalidJSONSchema is returned when a JSON schema cannot be compiled.
	ErrInvalidJSONSchema = errors.New("invalid JSON schema")
	// ErrJSONSchemaValidation is returned when a value does not conform to a JSON schema.
	ErrJSONSchemaValidation = errors.New("value does not match JSON schema")
)

var markdownJSONBlock = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// JSONFromMarkdown returns the contents of the first fenced JSON block in the given text.
// The text is returned unchanged if it contains no such block.
func JSONFromMarkdown(content string) string {
	if matches := markdownJSONBlock.FindStringSubmatch(content); len(matches) > 1 {
		return matches[1]
	}
	return content
}

// RepairTextJSON attempts to fix malformed JSON produced by a model,
// such as unterminated objects, raw newlines in strings, or surrounding markdown.
func RepairTextJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("empty JSON content")
	}
	return jsonrepair.JSONRepair(JSONFromMarkdown(content))
}

// ValidateAgainstSchema compiles the given JSON schema and validates every value against it.
// Values must be in the form produced by decoding JSON into an empty interface.
func ValidateAgainstSchema(schema map[string]interface{}, values ...interface{}) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schema); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSONSchema, err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSONSchema, err)
	}
	for i, value := range values {
		if err := compiled.Validate(value); err != nil {
			return fmt.Errorf("%w: value %d: %v", ErrJSONSchemaValidation, i, err)
		}
	}
	return nil
}
