package outlier

import (
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/passage"
)

// Breakdown counts records by the stage that decided them.
type Breakdown struct {
	RemovedStage1  int `json:"removed_by_hard_bounds_stage1"`
	RemovedStage2  int `json:"removed_by_adaptive"`
	KeptSmallGroup int `json:"skipped_groups_count"`
}

// GroupDetail is the per-cohort section of Stats.
type GroupDetail struct {
	Total           int `json:"total_in_group"`
	RemovedStage1   int `json:"removed_by_hard_bounds_stage1"`
	RemovedStage2   int `json:"removed_adaptive"`
	Kept            int `json:"kept"`
	SkippedAdaptive int `json:"skipped_adaptive"`

	// Statistics over the group's Stage 1 survivors. Zero when the group
	// had no survivors or adaptive filtering was disabled.
	SampleCount  int             `json:"sample_count"`
	Mean         float64         `json:"avg_pass_time"`
	Bounds       *passage.Bounds `json:"bounds,omitempty"`
	SkippedGroup bool            `json:"skipped_group"`
}

// Stats reports what a filtering run removed and why. It is produced once
// per call and is not persisted by this package.
type Stats struct {
	TotalRecords    int                      `json:"total_records"`
	RemovedRecords  int                      `json:"removed_records"`
	FilteredRecords int                      `json:"filtered_records"`
	RemovalRatePct  float64                  `json:"removal_rate_pct"`
	Breakdown       Breakdown                `json:"removal_breakdown"`
	Groups          map[GroupKey]GroupDetail `json:"group_statistics"`
	Config          Config                   `json:"config"`
}

// LevelTally aggregates group details over every zone at one congestion
// level.
type LevelTally struct {
	Kept          int `json:"kept"`
	RemovedStage1 int `json:"removed_stage1"`
	RemovedStage2 int `json:"removed_adaptive"`
}

// Total returns the number of records at the level.
func (t LevelTally) Total() int {
	return t.Kept + t.RemovedStage1 + t.RemovedStage2
}

func buildStats(records []passage.Record, outcomes []Outcome, groups map[GroupKey]GroupStat, cfg Config) Stats {
	s := Stats{
		TotalRecords: len(records),
		Groups:       make(map[GroupKey]GroupDetail),
		Config:       cfg,
	}

	details := make(map[GroupKey]*GroupDetail)
	for i, r := range records {
		o := outcomes[i]
		switch o {
		case OutcomeRemovedStage1:
			s.Breakdown.RemovedStage1++
		case OutcomeRemovedStage2:
			s.Breakdown.RemovedStage2++
		case OutcomeKeptSmallGroup:
			s.Breakdown.KeptSmallGroup++
		}
		if o.Kept() {
			s.FilteredRecords++
		}

		// Records that lack a key cannot be attributed to a cohort.
		if !r.HasFilterFields() {
			continue
		}
		key := KeyOf(r)
		d, ok := details[key]
		if !ok {
			d = &GroupDetail{}
			details[key] = d
		}
		d.Total++
		switch o {
		case OutcomeRemovedStage1:
			d.RemovedStage1++
		case OutcomeRemovedStage2:
			d.RemovedStage2++
		case OutcomeKeptSmallGroup:
			d.SkippedAdaptive++
		case OutcomeKept:
			d.Kept++
		}
	}

	for key, d := range details {
		if gs, ok := groups[key]; ok {
			d.SampleCount = gs.Count
			d.Mean = gs.Mean
			d.Bounds = gs.Bounds
			d.SkippedGroup = !gs.AdaptiveEligible
		}
		s.Groups[key] = *d
	}

	s.RemovedRecords = s.TotalRecords - s.FilteredRecords
	if s.TotalRecords > 0 {
		s.RemovalRatePct = float64(s.RemovedRecords) / float64(s.TotalRecords) * 100
	}
	return s
}

// Keys returns the group keys in zone, level order.
func (s Stats) Keys() []GroupKey {
	keys := make([]GroupKey, 0, len(s.Groups))
	for k := range s.Groups {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// ByLevel folds the group details into one tally per congestion level.
func (s Stats) ByLevel() map[passage.CongestionLevel]LevelTally {
	out := make(map[passage.CongestionLevel]LevelTally)
	for key, d := range s.Groups {
		t := out[key.Level]
		t.Kept += d.Kept + d.SkippedAdaptive
		t.RemovedStage1 += d.RemovedStage1
		t.RemovedStage2 += d.RemovedStage2
		out[key.Level] = t
	}
	return out
}

// LogSummary writes the run summary through monitoring.Logf.
func (s Stats) LogSummary() {
	monitoring.Logf("  total records: %d", s.TotalRecords)
	monitoring.Logf("  stage 1 (hard bounds) removed: %d", s.Breakdown.RemovedStage1)
	monitoring.Logf("  stage 2 (adaptive) removed: %d", s.Breakdown.RemovedStage2)
	monitoring.Logf("  small-group records passed through: %d", s.Breakdown.KeptSmallGroup)
	monitoring.Logf("  removed: %d (%.1f%%), remaining: %d", s.RemovedRecords, s.RemovalRatePct, s.FilteredRecords)

	skipped := 0
	for _, d := range s.Groups {
		if d.SkippedGroup {
			skipped++
		}
	}
	monitoring.Logf("  groups: %d total, %d filtered adaptively, %d below %d samples",
		len(s.Groups), len(s.Groups)-skipped, skipped, s.Config.MinSampleThreshold)

	tallies := s.ByLevel()
	for _, level := range passage.CongestionLevels {
		t, ok := tallies[level]
		if !ok || t.Total() == 0 {
			continue
		}
		monitoring.Logf("    %-9s kept %6d (%5.1f%%) | stage1 removed %5d | stage2 removed %5d",
			level, t.Kept, float64(t.Kept)/float64(t.Total())*100, t.RemovedStage1, t.RemovedStage2)
	}

	if monitoring.Verbose() {
		for _, key := range s.Keys() {
			d := s.Groups[key]
			monitoring.Debugf("group %s: total=%d kept=%d skipped=%d stage1=%d stage2=%d mean=%.1f",
				key, d.Total, d.Kept, d.SkippedAdaptive, d.RemovedStage1, d.RemovedStage2, d.Mean)
		}
	}
}
