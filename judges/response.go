// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package judges

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/pkg/utils"
)

// verdict is the reply expected from the judge model in the JSON response format.
type verdict struct {
	Score       float64 `json:"score" jsonschema:"title=Score,description=A number between 0.0 and 1.0 rating the text."`
	Explanation string  `json:"explanation" jsonschema:"title=Explanation,description=A short justification of the score."`
}

var verdictJSONSchema = sync.OnceValue(func() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(verdict{})
})

var verdictJSONSchemaRaw = sync.OnceValue(func() map[string]interface{} {
	schemaBytes, err := json.Marshal(verdictJSONSchema())
	if err != nil {
		panic(fmt.Errorf("failed to encode verdict schema: %w", err))
	}

	var schemaMap map[string]interface{}
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		panic(fmt.Errorf("failed to decode verdict schema: %w", err))
	}

	return schemaMap
})

var verdictFormatInstruction = sync.OnceValue(func() string {
	schema, err := json.Marshal(verdictJSONSchema())
	if err != nil {
		panic(fmt.Errorf("failed to encode verdict schema: %w", err))
	}
	return fmt.Sprintf("Respond only with a JSON object that conforms to this JSON schema: %s", schema)
})

// parseReply extracts the score, and the explanation if the format carries one, from the judge model's reply.
func parseReply(content string, responseFormat string) (score float64, explanation string, err error) {
	if strings.TrimSpace(content) == "" {
		return 0, "", ErrEmptyResponse
	}
	if responseFormat == config.JSONResponseFormat {
		return parseVerdict(content)
	}
	score, err = parseScore(content)
	return score, "", err
}

func parseScore(content string) (float64, error) {
	scoreText := strings.TrimSpace(content)
	score, err := strconv.ParseFloat(scoreText, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w from response: %s", ErrParseScore, scoreText)
	}
	return score, nil
}

func parseVerdict(content string) (float64, string, error) {
	repaired, err := utils.RepairTextJSON(content)
	if err != nil {
		return 0, "", fmt.Errorf("%w from response: %v", ErrParseScore, err)
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return 0, "", fmt.Errorf("%w from response: %v", ErrParseScore, err)
	}
	if err := utils.ValidateAgainstSchema(verdictJSONSchemaRaw(), raw); err != nil {
		return 0, "", fmt.Errorf("%w from response: %v", ErrParseScore, err)
	}

	var reply verdict
	if err := json.Unmarshal([]byte(repaired), &reply); err != nil {
		return 0, "", fmt.Errorf("%w from response: %v", ErrParseScore, err)
	}
	return reply.Score, strings.TrimSpace(reply.Explanation), nil
}
