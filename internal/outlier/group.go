package outlier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/stats"
)

// GroupKey identifies a statistical cohort: one zone at one congestion
// level.
type GroupKey struct {
	ZoneID int
	Level  passage.CongestionLevel
}

// KeyOf returns the cohort of a record.
func KeyOf(r passage.Record) GroupKey {
	return GroupKey{ZoneID: r.ZoneID, Level: r.Congestion}
}

// String renders the key as "zone/level", e.g. "5/High".
func (k GroupKey) String() string {
	return fmt.Sprintf("%d/%s", k.ZoneID, k.Level)
}

// MarshalText lets GroupKey key JSON objects.
func (k GroupKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the String form.
func (k *GroupKey) UnmarshalText(text []byte) error {
	zone, level, ok := strings.Cut(string(text), "/")
	if !ok {
		return fmt.Errorf("invalid group key %q", text)
	}
	id, err := strconv.Atoi(zone)
	if err != nil {
		return fmt.Errorf("invalid group key %q: %w", text, err)
	}
	k.ZoneID = id
	k.Level = passage.CongestionLevel(level)
	return nil
}

// SortKeys orders keys by zone, then congestion level.
func SortKeys(keys []GroupKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ZoneID != keys[j].ZoneID {
			return keys[i].ZoneID < keys[j].ZoneID
		}
		return keys[i].Level.Rank() < keys[j].Level.Rank()
	})
}

// GroupStat summarises the observed waits of one cohort. Bounds is set only
// when the cohort is large enough to trust a derived interval.
type GroupStat struct {
	Count            int             `json:"sample_count"`
	Mean             float64         `json:"avg_pass_time"`
	Min              float64         `json:"min_time"`
	Max              float64         `json:"max_time"`
	AdaptiveEligible bool            `json:"adaptive_eligible"`
	Bounds           *passage.Bounds `json:"bounds,omitempty"`
}

// ComputeGroupStats partitions records by (zone, congestion level) and
// summarises each partition. Records missing a filter field are ignored.
// Groups with fewer than minSamples records are marked ineligible and carry
// no bounds; eligible groups get [mean*lowerMult, mean*upperMult].
func ComputeGroupStats(records []passage.Record, minSamples int, lowerMult, upperMult float64) map[GroupKey]GroupStat {
	times := make(map[GroupKey][]float64)
	for _, r := range records {
		if !r.HasFilterFields() {
			continue
		}
		key := KeyOf(r)
		times[key] = append(times[key], float64(r.ActualPassTime))
	}

	out := make(map[GroupKey]GroupStat, len(times))
	for key, values := range times {
		s := stats.Summarize(values)
		gs := GroupStat{
			Count: s.Count,
			Mean:  s.Mean,
			Min:   s.Min,
			Max:   s.Max,
		}
		if s.Count >= minSamples {
			gs.AdaptiveEligible = true
			gs.Bounds = &passage.Bounds{Lower: s.Mean * lowerMult, Upper: s.Mean * upperMult}
		}
		out[key] = gs
	}
	return out
}
