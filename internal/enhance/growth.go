package enhance

import (
	"fmt"
	"sort"

	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/stats"
	"github.com/banshee-data/queue.report/internal/timeutil"
)

// State is the trend of a zone's queue size between consecutive windows.
type State string

const (
	StateGrowing   State = "growing"
	StateStable    State = "stable"
	StateShrinking State = "shrinking"
)

// States lists every queue state.
var States = []State{StateGrowing, StateStable, StateShrinking}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateGrowing, StateStable, StateShrinking:
		return true
	}
	return false
}

const (
	// GrowthThreshold is the relative change in mean queue size beyond
	// which a window counts as growing or shrinking.
	GrowthThreshold = 0.10
	// MinStateSamples is the number of ratios a state needs before its
	// mean replaces the neutral factor.
	MinStateSamples = 20
	// DefaultWindowMinutes is the default window width.
	DefaultWindowMinutes = 5
)

// ClassifyState compares the mean queue size of a window with the previous
// window of the same zone. previous is nil for a zone's first window.
func ClassifyState(current float64, previous *float64) State {
	if previous == nil || *previous == 0 {
		return StateStable
	}
	change := (current - *previous) / *previous
	switch {
	case change > GrowthThreshold:
		return StateGrowing
	case change < -GrowthThreshold:
		return StateShrinking
	default:
		return StateStable
	}
}

// GrowthOptions controls FitQueueGrowth.
type GrowthOptions struct {
	WindowMinutes int `json:"window_minutes"`
}

// DefaultGrowthOptions returns the production settings.
func DefaultGrowthOptions() GrowthOptions {
	return GrowthOptions{WindowMinutes: DefaultWindowMinutes}
}

// Validate checks the window width. Windows are aligned within the hour,
// so the width cannot exceed 60 minutes.
func (o GrowthOptions) Validate() error {
	if o.WindowMinutes < 1 || o.WindowMinutes > 60 {
		return fmt.Errorf("window_minutes must be in 1..60, got %d", o.WindowMinutes)
	}
	return nil
}

// StateStat is the training diagnostic for one state.
type StateStat struct {
	// Records is the number of ratios per algorithm, averaged over the
	// algorithms and truncated.
	Records int `json:"record_count"`
	Windows int `json:"windows"`
}

// QueueGrowthModel holds a correction factor per queue state per
// algorithm.
type QueueGrowthModel struct {
	WindowMinutes int
	Factors       map[State]passage.Factors
	Stats         map[State]StateStat
	TotalWindows  int

	trained bool
}

// Trained reports whether the model was fitted or loaded.
func (m *QueueGrowthModel) Trained() bool {
	return m != nil && m.trained
}

// Factor returns the factor for an algorithm in a state.
func (m *QueueGrowthModel) Factor(s State, alg passage.Algorithm) float64 {
	return m.Factors[s][alg]
}

type windowKey struct {
	zone  int
	start int64
}

// windowStates assigns a state to every record. Records are grouped into
// (zone, window start) buckets; each bucket is compared with the nearest
// earlier bucket of the same zone. The result is parallel to records.
func windowStates(records []passage.Record, windowMinutes int) (states []State, perState map[State]int, windows int) {
	buckets := make(map[windowKey][]int)
	for i, r := range records {
		start := timeutil.FloorToWindow(r.Timestamp, windowMinutes)
		k := windowKey{zone: r.ZoneID, start: start.Unix()}
		buckets[k] = append(buckets[k], i)
	}

	keys := make([]windowKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].zone != keys[j].zone {
			return keys[i].zone < keys[j].zone
		}
		return keys[i].start < keys[j].start
	})

	states = make([]State, len(records))
	perState = make(map[State]int)
	var prev *float64
	prevZone := 0
	for i, k := range keys {
		idx := buckets[k]
		counts := make([]float64, len(idx))
		for j, ri := range idx {
			counts[j] = float64(records[ri].ObjectCount)
		}
		mean := stats.Mean(counts)

		if i == 0 || k.zone != prevZone {
			prev = nil
		}
		s := ClassifyState(mean, prev)
		for _, ri := range idx {
			states[ri] = s
		}
		perState[s]++

		m := mean
		prev = &m
		prevZone = k.zone
	}
	return states, perState, len(keys)
}

// FitQueueGrowth learns a factor per state and algorithm: the mean of
// actual/predicted over records whose window was in that state, when at
// least MinStateSamples ratios exist, otherwise 1.0. Records without an
// observed wait still shape the windows but contribute no ratios. Input
// order does not matter.
func FitQueueGrowth(records []passage.Record, opts GrowthOptions) (*QueueGrowthModel, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	states, perState, windows := windowStates(records, opts.WindowMinutes)

	ratios := make(map[State]*[passage.NumAlgorithms][]float64, len(States))
	for _, s := range States {
		ratios[s] = new([passage.NumAlgorithms][]float64)
	}
	for i, r := range records {
		if !r.HasActual() {
			continue
		}
		for _, alg := range passage.Algorithms {
			if ratio, ok := ratioOf(r.ActualPassTime, r.Estimate(alg)); ok {
				ratios[states[i]][alg] = append(ratios[states[i]][alg], ratio)
			}
		}
	}

	m := &QueueGrowthModel{
		WindowMinutes: opts.WindowMinutes,
		Factors:       make(map[State]passage.Factors, len(States)),
		Stats:         make(map[State]StateStat, len(States)),
		TotalWindows:  windows,
		trained:       true,
	}
	for _, s := range States {
		var f passage.Factors
		total := 0
		for _, alg := range passage.Algorithms {
			rs := ratios[s][alg]
			total += len(rs)
			f[alg] = 1.0
			if len(rs) >= MinStateSamples {
				f[alg] = stats.Mean(rs)
			}
		}
		m.Factors[s] = f
		m.Stats[s] = StateStat{Records: total / passage.NumAlgorithms, Windows: perState[s]}
	}

	monitoring.Logf("enhance: queue-growth fitted on %d windows of %d minutes", windows, opts.WindowMinutes)
	return m, nil
}

// Annotate sets QueueState and QueueGrowth on each record in place. States
// are derived from the records themselves, exactly as in training, so the
// slice should hold the whole period being enhanced.
func (m *QueueGrowthModel) Annotate(records []Annotated) error {
	if !m.Trained() {
		return ErrUntrained
	}
	plain := make([]passage.Record, len(records))
	for i := range records {
		plain[i] = records[i].Record
	}
	states, _, _ := windowStates(plain, m.WindowMinutes)
	for i := range records {
		s := states[i]
		records[i].QueueState = s
		records[i].QueueGrowth = adjust(records[i].Estimates, m.Factors[s])
	}
	return nil
}

// Transform returns records annotated with their queue state and
// growth-adjusted predictions, in input order.
func (m *QueueGrowthModel) Transform(records []passage.Record) ([]Annotated, error) {
	out := Wrap(records)
	if err := m.Annotate(out); err != nil {
		return nil, err
	}
	return out, nil
}
