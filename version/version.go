// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package version reports the name, version and source module of the stattest build.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Name of the application.
const Name string = "stattest"

// unknown is reported when the build carries no module metadata.
const unknown = "(unknown)"

var source = sync.OnceValue(func() debug.Module {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main
	}
	return debug.Module{}
})

// GetVersion returns the version of the application.
func GetVersion() string {
	if version := source().Version; version != "" {
		return version
	}
	return unknown
}

// GetSource returns the source path of the main package.
func GetSource() string {
	if path := source().Path; path != "" {
		return path
	}
	return unknown
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("%s %s (%s)", Name, GetVersion(), GetSource())
}
