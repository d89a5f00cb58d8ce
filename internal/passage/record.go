package passage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MissingPassTime marks a record whose observed wait time is unknown.
// Observed wait times are never negative, so any negative value is treated
// as missing.
const MissingPassTime = -1

// ClockTime is a wall-clock time of day with second precision, as written
// in the entry/exit columns of the passage logs. The zero value is invalid
// (absent), in the manner of sql.NullInt64.
type ClockTime struct {
	Seconds int
	Valid   bool
}

// NewClockTime builds a valid ClockTime from its components.
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime{Seconds: hour*3600 + minute*60 + second, Valid: true}
}

// ClockTimeOf returns the time-of-day component of t.
func ClockTimeOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClockTime parses "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: want HH:MM:SS", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
		}
		v[i] = n
	}
	if v[0] > 23 || v[1] > 59 || v[2] > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return NewClockTime(v[0], v[1], v[2]), nil
}

// Hour returns the hour of day (0-23).
func (c ClockTime) Hour() int {
	return (c.Seconds / 3600) % 24
}

// String formats the clock time as HH:MM:SS, or "" when absent.
func (c ClockTime) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Seconds/3600, (c.Seconds/60)%60, c.Seconds%60)
}

// Record is one observed queue passage.
type Record struct {
	Timestamp   time.Time
	ObjectID    int // zero when the source format does not carry one
	ZoneID      int // positive; zero means missing
	ObjectCount int // queue size when the object was observed

	EntryTime ClockTime
	ExitTime  ClockTime

	// Estimates holds the predicted wait time in seconds for each
	// estimation algorithm. Negative values are accepted as data.
	Estimates Factors

	// ActualPassTime is the observed wait time in seconds, or
	// MissingPassTime.
	ActualPassTime int

	// Congestion is derived from ZoneID and ObjectCount by Classify.
	Congestion CongestionLevel
}

// Estimate returns the prediction of the given algorithm.
func (r Record) Estimate(alg Algorithm) float64 {
	return r.Estimates[alg]
}

// HasActual reports whether the observed wait time is known.
func (r Record) HasActual() bool {
	return r.ActualPassTime >= 0
}

// HasFilterFields reports whether the record carries everything the
// outlier filter keys on: zone, congestion level and observed wait time.
func (r Record) HasFilterFields() bool {
	return r.ZoneID > 0 && r.Congestion.IsValid() && r.HasActual()
}

// Hour returns the hour of day the object entered the queue. The entry time
// is preferred; the record timestamp is used when it is absent.
func (r Record) Hour() int {
	if r.EntryTime.Valid {
		return r.EntryTime.Hour()
	}
	return r.Timestamp.Hour()
}

// Date returns the calendar date of the record as YYYYMMDD.
func (r Record) Date() string {
	return r.Timestamp.Format("20060102")
}

// Group returns the zone group the record's zone belongs to.
func (r Record) Group() ZoneGroup {
	return ZoneGroupOf(r.ZoneID)
}

// SortByTime sorts records by timestamp, keeping the relative order of
// records that share a timestamp.
func SortByTime(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// IsSortedByTime reports whether records are in non-decreasing timestamp
// order.
func IsSortedByTime(records []Record) bool {
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			return false
		}
	}
	return true
}
