package passage

import (
	"fmt"
	"sort"
)

// DefaultBucketWidth is the queue-size bucket width used by the reports.
const DefaultBucketWidth = 50

// QueueBucket is a closed range of queue sizes. The empty-queue bucket is
// {0, 0}; every other bucket spans Width values starting at a multiple of
// Width plus one (1-50, 51-100, ...).
type QueueBucket struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// BucketFor returns the bucket containing count. A non-positive width falls
// back to DefaultBucketWidth.
func BucketFor(count, width int) QueueBucket {
	if width <= 0 {
		width = DefaultBucketWidth
	}
	if count <= 0 {
		return QueueBucket{}
	}
	upper := ((count-1)/width + 1) * width
	return QueueBucket{Lower: upper - width + 1, Upper: upper}
}

// Contains reports whether count falls in the bucket.
func (b QueueBucket) Contains(count int) bool {
	return count >= b.Lower && count <= b.Upper
}

// String renders the bucket as "lower-upper", or "0" for the empty queue.
func (b QueueBucket) String() string {
	if b.Upper == 0 {
		return "0"
	}
	return fmt.Sprintf("%d-%d", b.Lower, b.Upper)
}

// MarshalText lets QueueBucket key JSON objects.
func (b QueueBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses the String form.
func (b *QueueBucket) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "0" {
		*b = QueueBucket{}
		return nil
	}
	var lo, hi int
	if _, err := fmt.Sscanf(s, "%d-%d", &lo, &hi); err != nil {
		return fmt.Errorf("invalid queue bucket %q: %w", s, err)
	}
	if lo > hi {
		return fmt.Errorf("invalid queue bucket %q: lower above upper", s)
	}
	*b = QueueBucket{Lower: lo, Upper: hi}
	return nil
}

// SortBuckets orders buckets by their lower bound.
func SortBuckets(buckets []QueueBucket) {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Lower < buckets[j].Lower })
}
