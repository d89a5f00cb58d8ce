package passage

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("14:30:45")
	if err != nil {
		t.Fatalf("ParseClockTime failed: %v", err)
	}
	if c.Seconds != 52245 || c.Hour() != 14 || c.String() != "14:30:45" {
		t.Errorf("got %+v (%s)", c, c)
	}

	for _, bad := range []string{"", "12:00", "24:00:00", "aa:bb:cc", "10:60:00"} {
		if _, err := ParseClockTime(bad); err == nil {
			t.Errorf("ParseClockTime(%q) expected error", bad)
		}
	}
}

func TestRecordHourPrefersEntryTime(t *testing.T) {
	ts := time.Date(2025, 12, 21, 10, 5, 0, 0, time.UTC)
	r := Record{Timestamp: ts}
	if r.Hour() != 10 {
		t.Errorf("Hour() without entry = %d, want 10", r.Hour())
	}
	r.EntryTime = NewClockTime(9, 58, 0)
	if r.Hour() != 9 {
		t.Errorf("Hour() with entry = %d, want 9", r.Hour())
	}
	if r.Date() != "20251221" {
		t.Errorf("Date() = %s", r.Date())
	}
}

func TestSortByTimeIsStable(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ObjectID: 1, Timestamp: base.Add(2 * time.Minute)},
		{ObjectID: 2, Timestamp: base},
		{ObjectID: 3, Timestamp: base.Add(2 * time.Minute)},
		{ObjectID: 4, Timestamp: base},
	}
	if IsSortedByTime(records) {
		t.Fatal("fixture should be unsorted")
	}
	SortByTime(records)
	want := []int{2, 4, 1, 3}
	for i, id := range want {
		if records[i].ObjectID != id {
			t.Fatalf("position %d: got object %d, want %d", i, records[i].ObjectID, id)
		}
	}
	if !IsSortedByTime(records) {
		t.Error("expected sorted records")
	}
}

func TestFactorsJSON(t *testing.T) {
	f := Factors{1.25, 0.5, 1.0 / 3.0}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Factors
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != f {
		t.Errorf("round trip = %v, want %v", got, f)
	}

	if err := json.Unmarshal([]byte(`{"lidar":1,"final":2}`), &got); err == nil {
		t.Error("expected error for missing algorithm")
	}
	if err := json.Unmarshal([]byte(`{"lidar":1,"final":2,"radar":3}`), &got); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "0"},
		{-3, "0"},
		{1, "1-50"},
		{50, "1-50"},
		{51, "51-100"},
		{149, "101-150"},
	}
	for _, tt := range tests {
		b := BucketFor(tt.count, DefaultBucketWidth)
		if b.String() != tt.want {
			t.Errorf("BucketFor(%d) = %s, want %s", tt.count, b, tt.want)
		}
		if tt.count > 0 && !b.Contains(tt.count) {
			t.Errorf("bucket %s should contain %d", b, tt.count)
		}
	}

	buckets := []QueueBucket{BucketFor(120, 50), BucketFor(0, 50), BucketFor(7, 50)}
	SortBuckets(buckets)
	if buckets[0].String() != "0" || buckets[2].String() != "101-150" {
		t.Errorf("SortBuckets = %v", buckets)
	}

	var parsed QueueBucket
	if err := parsed.UnmarshalText([]byte("51-100")); err != nil || parsed != BucketFor(60, 50) {
		t.Errorf("UnmarshalText = %+v, %v", parsed, err)
	}
}
