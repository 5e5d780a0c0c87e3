// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package judges

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/petmal/stattest/config"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

var defaultTemplates = template.Must(template.New("judge").ParseFS(promptFiles, "prompts/*.tmpl"))

const (
	criterionTemplateName   = "criterion.tmpl"
	groundTruthTemplateName = "ground_truth.tmpl"
)

// scoreFormatInstruction is appended to default templates when a bare number is expected.
const scoreFormatInstruction = "Only respond with a single number."

type promptData struct {
	Criterion   string
	GroundTruth string
}

// selector identifies which input drives the evaluation.
type selector int

const (
	byCriterion selector = iota
	byGroundTruth
	byTemplate
)

func (s selector) String() string {
	switch s {
	case byCriterion:
		return "criterion"
	case byGroundTruth:
		return "ground truth"
	case byTemplate:
		return "custom template"
	}
	return "unknown"
}

// resolve checks the selector inputs of the request and returns the one in effect.
// A custom template accepts any combination of criterion and ground truth.
func (q request) resolve() (selector, error) {
	switch {
	case q.template != "":
		return byTemplate, nil
	case q.criterion != "" && q.groundTruth != "":
		return 0, fmt.Errorf("%w: criterion and ground truth cannot be set at the same time without a custom template", ErrInvalidSelector)
	case q.criterion != "":
		return byCriterion, nil
	case q.groundTruth != "":
		return byGroundTruth, nil
	}
	return 0, fmt.Errorf("%w: either criterion or ground truth must be provided", ErrInvalidSelector)
}

// systemPrompt renders the instructions sent to the judge model for the given selector and response format.
func (q request) systemPrompt(sel selector, responseFormat string) (string, error) {
	data := promptData{
		Criterion:   q.criterion,
		GroundTruth: q.groundTruth,
	}

	var prompt strings.Builder
	switch sel {
	case byTemplate:
		tmpl, err := template.New("custom").Parse(q.template)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		if err := tmpl.Execute(&prompt, data); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
	case byCriterion:
		if err := defaultTemplates.ExecuteTemplate(&prompt, criterionTemplateName, data); err != nil {
			return "", err
		}
	case byGroundTruth:
		if err := defaultTemplates.ExecuteTemplate(&prompt, groundTruthTemplateName, data); err != nil {
			return "", err
		}
	}

	switch responseFormat {
	case config.JSONResponseFormat:
		appendInstruction(&prompt, verdictFormatInstruction())
	default:
		if sel != byTemplate {
			appendInstruction(&prompt, scoreFormatInstruction)
		}
	}
	return prompt.String(), nil
}

func appendInstruction(prompt *strings.Builder, instruction string) {
	text := strings.TrimRight(prompt.String(), "\n")
	prompt.Reset()
	prompt.WriteString(text)
	if text != "" {
		prompt.WriteString(" ")
	}
	prompt.WriteString(instruction)
}
