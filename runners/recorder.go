// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package runners

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is a completed evaluation captured by a Recorder.
type Record struct {
	// ID uniquely identifies the record.
	ID string
	// Name is the name of the evaluated test.
	Name string
	// Verdict is the aggregate result of the evaluation.
	Verdict Verdict
	// Duration is the wall time taken by all runs.
	Duration time.Duration
}

// Passed reports whether the recorded verdict passed.
func (r Record) Passed() bool {
	return r.Verdict.Passed()
}

// Recorder collects the records of completed evaluations.
// It is safe for concurrent use by runners shared across parallel tests.
type Recorder struct {
	recordsLock sync.RWMutex
	records     []Record
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (rec *Recorder) add(name string, verdict Verdict, duration time.Duration) Record {
	record := Record{
		ID:       ulid.Make().String(),
		Name:     name,
		Verdict:  verdict,
		Duration: duration,
	}
	rec.recordsLock.Lock()
	defer rec.recordsLock.Unlock()
	rec.records = append(rec.records, record)
	return record
}

// Records returns a copy of all records in completion order.
func (rec *Recorder) Records() []Record {
	rec.recordsLock.RLock()
	defer rec.recordsLock.RUnlock()
	return slices.Clone(rec.records)
}

// Len returns the number of records.
func (rec *Recorder) Len() int {
	rec.recordsLock.RLock()
	defer rec.recordsLock.RUnlock()
	return len(rec.records)
}
