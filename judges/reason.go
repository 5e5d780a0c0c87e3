// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package judges

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxQuotedLength caps how much of each input is quoted in a reason.
const maxQuotedLength = 120

// explain builds the human-readable reason of an assessment from its inputs.
func explain(sel selector, q request, text string, score float64, explanation string) string {
	var reason strings.Builder
	switch sel {
	case byCriterion:
		fmt.Fprintf(&reason, "criterion %q scored %.2f", truncate(q.criterion), score)
	case byGroundTruth:
		fmt.Fprintf(&reason, "ground truth %q scored %.2f", truncate(q.groundTruth), score)
		if delta := diff(q.groundTruth, text); delta != "" {
			fmt.Fprintf(&reason, "; diff: %s", delta)
		}
	case byTemplate:
		fmt.Fprintf(&reason, "custom template scored %.2f", score)
	}
	if explanation != "" {
		fmt.Fprintf(&reason, "; judge: %s", explanation)
	}
	return reason.String()
}

// diff renders the changes turning expected into actual, marking removals with [-...-]
// and insertions with {+...+}. It returns an empty string if both are equal.
func diff(expected, actual string) string {
	if expected == actual {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(expected, actual, false))

	var out strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			out.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			out.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffEqual:
			out.WriteString(d.Text)
		}
	}
	return truncate(out.String())
}

func truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= maxQuotedLength {
		return value
	}
	return string(runes[:maxQuotedLength]) + "..."
}
