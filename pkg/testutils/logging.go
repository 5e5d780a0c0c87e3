// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package testutils

import (
	"testing"

	"github.com/petmal/stattest/pkg/logging"
	"github.com/rs/zerolog"
)

// NewTestLogger creates a logging.Logger that outputs to the test framework.
// Log messages will be properly associated with the test and displayed in test output,
// at every level including trace.
func NewTestLogger(t *testing.T) logging.Logger {
	return logging.NewZerologLogger(zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.TraceLevel))
}
