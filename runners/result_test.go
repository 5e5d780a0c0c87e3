// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confidence float64

type label string

type assessment struct {
	score  float64
	reason string
}

func (a assessment) ScoreReason() (float64, string) {
	return a.score, a.reason
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantKind ResultKind
		want     Outcome
		wantErr  error
	}{
		{
			name:     "nil",
			value:    nil,
			wantKind: Absent,
			want:     Outcome{Score: 1},
		},
		{
			name:     "nil pointer",
			value:    (*assessment)(nil),
			wantKind: Absent,
			want:     Outcome{Score: 1},
		},
		{
			name:     "float64",
			value:    0.25,
			wantKind: Scored,
			want:     Outcome{Score: 0.25},
		},
		{
			name:     "float32",
			value:    float32(0.5),
			wantKind: Scored,
			want:     Outcome{Score: 0.5},
		},
		{
			name:     "named float type",
			value:    confidence(0.75),
			wantKind: Scored,
			want:     Outcome{Score: 0.75},
		},
		{
			name:     "string",
			value:    "ok",
			wantKind: Annotated,
			want:     Outcome{Score: 1, Reason: "ok"},
		},
		{
			name:     "named string type",
			value:    label("fine"),
			wantKind: Annotated,
			want:     Outcome{Score: 1, Reason: "fine"},
		},
		{
			name:     "score and reason pair",
			value:    Outcome{Score: 0.3, Reason: "too short"},
			wantKind: ScoredWithReason,
			want:     Outcome{Score: 0.3, Reason: "too short"},
		},
		{
			name:     "score reasoner",
			value:    assessment{score: 0.6, reason: "partially relevant"},
			wantKind: ScoredWithReason,
			want:     Outcome{Score: 0.6, Reason: "partially relevant"},
		},
		{
			name:     "score reasoner pointer",
			value:    &assessment{score: 0.1, reason: "off topic"},
			wantKind: ScoredWithReason,
			want:     Outcome{Score: 0.1, Reason: "off topic"},
		},
		{
			name:     "result passes through",
			value:    Score(0.9),
			wantKind: Scored,
			want:     Outcome{Score: 0.9},
		},
		{
			name:    "integer is rejected",
			value:   1,
			wantErr: ErrUnsupportedResult,
		},
		{
			name:    "boolean is rejected",
			value:   true,
			wantErr: ErrUnsupportedResult,
		},
		{
			name:    "slice is rejected",
			value:   []float64{0.5},
			wantErr: ErrUnsupportedResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
			assert.InDelta(t, tt.want.Score, got.Outcome().Score, 1e-9)
			assert.Equal(t, tt.want.Reason, got.Outcome().Reason)
		})
	}
}

func TestResultOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   Outcome
	}{
		{name: "zero value", result: Result{}, want: Outcome{Score: 1}},
		{name: "no result", result: NoResult(), want: Outcome{Score: 1}},
		{name: "score", result: Score(0.4), want: Outcome{Score: 0.4}},
		{name: "zero score", result: Score(0), want: Outcome{Score: 0}},
		{name: "annotation", result: Annotation("note"), want: Outcome{Score: 1, Reason: "note"}},
		{name: "score with reason", result: ScoreWithReason(0.2, "why"), want: Outcome{Score: 0.2, Reason: "why"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Outcome())
		})
	}
}

func TestFrom(t *testing.T) {
	failure := errors.New("upstream")

	_, err := From(0.5, failure)
	assert.ErrorIs(t, err, failure)

	result, err := From(assessment{score: 0.4, reason: "r"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ScoreWithReason(0.4, "r"), result)
}

func TestResultKindString(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "scored-with-reason", ScoredWithReason.String())
	assert.Equal(t, "ResultKind(9)", ResultKind(9).String())
}
