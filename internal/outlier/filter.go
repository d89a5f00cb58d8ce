package outlier

import (
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/passage"
)

// Outcome is the terminal state of one record after filtering.
type Outcome string

const (
	// OutcomeKept means the record passed every enabled stage.
	OutcomeKept Outcome = "kept"
	// OutcomeRemovedStage1 means the record failed the hard bounds.
	OutcomeRemovedStage1 Outcome = "removed_stage1"
	// OutcomeRemovedStage2 means the record fell outside its group's
	// adaptive bounds.
	OutcomeRemovedStage2 Outcome = "removed_stage2"
	// OutcomeKeptSmallGroup means Stage 2 could not evaluate the record
	// (group below the sample threshold, or fields missing) and passed it
	// through.
	OutcomeKeptSmallGroup Outcome = "kept_small_group"
)

// Kept reports whether the outcome retains the record.
func (o Outcome) Kept() bool {
	return o == OutcomeKept || o == OutcomeKeptSmallGroup
}

// Result is the output of Filter.
type Result struct {
	// Records holds the surviving records in their original relative order.
	Records []passage.Record
	// Outcomes is parallel to the input slice.
	Outcomes []Outcome
	// Groups holds the Stage 2 statistics, computed over Stage 1 survivors.
	// It is nil when adaptive filtering is disabled.
	Groups map[GroupKey]GroupStat
	Stats  Stats
}

// Stage1 applies the hard bounds and returns the outcome of every record:
// OutcomeKept for survivors, OutcomeRemovedStage1 otherwise.
func Stage1(records []passage.Record) []Outcome {
	outcomes := make([]Outcome, len(records))
	for i, r := range records {
		if passage.WithinHardBounds(r) {
			outcomes[i] = OutcomeKept
		} else {
			outcomes[i] = OutcomeRemovedStage1
		}
	}
	return outcomes
}

// Stage2Outcome classifies a Stage 1 survivor against the group statistics.
func Stage2Outcome(r passage.Record, groups map[GroupKey]GroupStat) Outcome {
	if !r.HasFilterFields() {
		return OutcomeKeptSmallGroup
	}
	gs, ok := groups[KeyOf(r)]
	if !ok {
		return OutcomeKept
	}
	if !gs.AdaptiveEligible || gs.Bounds == nil {
		return OutcomeKeptSmallGroup
	}
	if gs.Bounds.ContainsClosed(float64(r.ActualPassTime)) {
		return OutcomeKept
	}
	return OutcomeRemovedStage2
}

// Filter runs both stages over records. The input slice is not modified.
func Filter(records []passage.Record, cfg Config) Result {
	outcomes := make([]Outcome, len(records))
	if cfg.EnableStage1HardBounds {
		outcomes = Stage1(records)
	} else {
		for i := range outcomes {
			outcomes[i] = OutcomeKept
		}
	}

	survivors := make([]passage.Record, 0, len(records))
	survivorIdx := make([]int, 0, len(records))
	for i, r := range records {
		if outcomes[i] == OutcomeKept {
			survivors = append(survivors, r)
			survivorIdx = append(survivorIdx, i)
		}
	}
	monitoring.Logf("outlier: stage 1 %d -> %d records (removed %d)",
		len(records), len(survivors), len(records)-len(survivors))

	var groups map[GroupKey]GroupStat
	if cfg.EnableAdaptive {
		groups = ComputeGroupStats(survivors, cfg.MinSampleThreshold, cfg.AdaptiveLowerMult, cfg.AdaptiveUpperMult)
		for j, r := range survivors {
			outcomes[survivorIdx[j]] = Stage2Outcome(r, groups)
		}
	}

	kept := make([]passage.Record, 0, len(survivors))
	for i, r := range records {
		if outcomes[i].Kept() {
			kept = append(kept, r)
		}
	}

	res := Result{
		Records:  kept,
		Outcomes: outcomes,
		Groups:   groups,
		Stats:    buildStats(records, outcomes, groups, cfg),
	}
	monitoring.Logf("outlier: %d of %d records kept (%.1f%% removed)",
		res.Stats.FilteredRecords, res.Stats.TotalRecords, res.Stats.RemovalRatePct)
	return res
}
