// Package testutil provides shared test fixtures for passage records.
package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/queue.report/internal/passage"
)

// Base is the reference instant fixtures are built around: a Tuesday.
var Base = time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

// RecordOption adjusts a fixture record.
type RecordOption func(*passage.Record)

// Passage builds a classified record in zone at Base+offset with the given
// queue size and observed wait. All three estimates default to actual.
func Passage(offset time.Duration, zone, objectCount, actual int, opts ...RecordOption) passage.Record {
	ts := Base.Add(offset)
	r := passage.Record{
		Timestamp:      ts,
		ZoneID:         zone,
		ObjectCount:    objectCount,
		EntryTime:      passage.ClockTimeOf(ts),
		ExitTime:       passage.ClockTimeOf(ts.Add(time.Duration(actual) * time.Second)),
		Estimates:      passage.Uniform(float64(actual)),
		ActualPassTime: actual,
	}
	for _, opt := range opts {
		opt(&r)
	}
	r.Congestion = passage.Classify(r)
	return r
}

// WithEstimates sets the lidar, throughput and final estimates.
func WithEstimates(lidar, throughput, final float64) RecordOption {
	return func(r *passage.Record) {
		r.Estimates = passage.Factors{lidar, throughput, final}
	}
}

// WithEstimate sets every estimate to v.
func WithEstimate(v float64) RecordOption {
	return func(r *passage.Record) {
		r.Estimates = passage.Uniform(v)
	}
}

// WithObjectID sets the tracked object id.
func WithObjectID(id int) RecordOption {
	return func(r *passage.Record) {
		r.ObjectID = id
	}
}

// WithoutEntryTime clears the entry clock time so Hour falls back to the
// timestamp.
func WithoutEntryTime() RecordOption {
	return func(r *passage.Record) {
		r.EntryTime = passage.ClockTime{}
	}
}

// AtHour builds n records at the given hour of Base's day, one minute
// apart, each predicting pred and observing actual.
func AtHour(hour, n, zone, pred, actual int) []passage.Record {
	out := make([]passage.Record, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration(hour-Base.Hour())*time.Hour + time.Duration(i)*time.Minute
		out = append(out, Passage(offset, zone, 10, actual, WithEstimate(float64(pred))))
	}
	return out
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
