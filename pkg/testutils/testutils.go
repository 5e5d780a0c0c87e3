// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package testutils provides utilities for mocking remote services, managing test files, and making assertions in tests.
package testutils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// CreateMockFile creates a temporary file with the given name pattern and contents,
// returning the file path. The file is removed when the test finishes.
func CreateMockFile(t *testing.T, namePattern string, contents []byte) string {
	fp, err := os.CreateTemp(t.TempDir(), namePattern)
	if err != nil {
		t.Fatalf("failed to create test file: %v\n", err)
	}
	defer fp.Close()

	if _, err := fp.Write(contents); err != nil {
		t.Fatalf("failed to write test file: %v\n", err)
	}

	return fp.Name()
}

// WithWorkingDir temporarily changes the working directory to dir while executing fn.
func WithWorkingDir(t *testing.T, dir string, fn func()) {
	t.Chdir(filepath.Clean(dir))
	fn()
}

// AssertContainsAll verifies that the given contents string contains all specified elements.
func AssertContainsAll(t *testing.T, contents string, elements []string) {
	for i := range elements {
		assert.Contains(t, contents, elements[i])
	}
}

// AssertContainsNone verifies that the given contents string contains none of the specified elements.
func AssertContainsNone(t *testing.T, contents string, elements []string) {
	for i := range elements {
		assert.NotContains(t, contents, elements[i])
	}
}

// AssertNotBlank asserts that the given string is not blank (i.e., not empty or consisting only of whitespace).
func AssertNotBlank(t *testing.T, value string) {
	assert.NotEmpty(t, strings.TrimSpace(value))
}

// Ptr returns a pointer to the given value.
func Ptr[T any](value T) *T {
	return &value
}

// MockHTTPResponse defines a mock HTTP response for testing.
type MockHTTPResponse struct {
	StatusCode int
	Content    []byte
	Delay      time.Duration
}

// MockServer is a test HTTP server that replays configured responses and records request bodies.
type MockServer struct {
	*httptest.Server
	lock     sync.Mutex
	requests map[string][][]byte
}

// Requests returns the bodies of all requests received for the given path, in arrival order.
func (s *MockServer) Requests(path string) [][]byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([][]byte(nil), s.requests[path]...)
}

// CreateMockServer creates a test HTTP server with configurable responses.
// It accepts a map of paths to response sequences; the n-th request to a path receives
// the n-th response, and the last response is repeated once the sequence is exhausted.
// The server is closed when the test finishes.
func CreateMockServer(t *testing.T, responses map[string][]MockHTTPResponse) *MockServer {
	server := &MockServer{requests: make(map[string][][]byte)}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		server.lock.Lock()
		count := len(server.requests[r.URL.Path])
		server.requests[r.URL.Path] = append(server.requests[r.URL.Path], body)
		server.lock.Unlock()

		sequence, ok := responses[r.URL.Path]
		if !ok || len(sequence) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		response := sequence[min(count, len(sequence)-1)]
		if response.Delay > 0 {
			time.Sleep(response.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(response.StatusCode)
		if response.Content != nil {
			if _, err := w.Write(response.Content); err != nil {
				t.Errorf("failed to write mock response: %v", err)
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}
