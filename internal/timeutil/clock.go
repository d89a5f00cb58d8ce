// Package timeutil holds the clock abstraction used to stamp runs and the
// calendar helpers shared by ingestion and the growth detector.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock implements Clock with the time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually advanced clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock returns a MockClock reading t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// DayLayout is the compact calendar date used in log file names and date
// filters.
const DayLayout = "20060102"

// ParseDay parses a YYYYMMDD date in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD", s)
	}
	return t, nil
}

// FloorToWindow truncates t to the start of its window of the given width
// in minutes within the hour, e.g. 10:07:31 with 5 becomes 10:05:00.
// Windows never span an hour boundary; minutes must be in 1..60.
func FloorToWindow(t time.Time, minutes int) time.Time {
	if minutes < 1 {
		minutes = 1
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), (t.Minute()/minutes)*minutes, 0, 0, t.Location())
}
