package enhance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/queue.report/internal/fsutil"
	"github.com/banshee-data/queue.report/internal/passage"
)

// Artifact schema tags and default file names inside a model directory.
const (
	TimeOfDaySchema   = "queue.report/time_of_day/v1"
	QueueGrowthSchema = "queue.report/queue_growth/v1"

	TimeOfDayFile   = "time_of_day_factors.json"
	QueueGrowthFile = "queue_growth_factors.json"
)

type todArtifact struct {
	Schema       string           `json:"schema"`
	Options      TimeOfDayOptions `json:"options"`
	GlobalRatios *passage.Factors `json:"global_ratios"`
	TotalRecords int              `json:"total_records"`
	Hourly       []hourArtifact   `json:"hourly"`
}

type hourArtifact struct {
	Hour        int                            `json:"hour"`
	RecordCount int                            `json:"record_count"`
	MeanActual  float64                        `json:"avg_actual_time"`
	Factors     *passage.Factors               `json:"factors"`
	Stats       map[passage.Algorithm]HourStat `json:"stats"`
}

type growthArtifact struct {
	Schema        string                    `json:"schema"`
	WindowMinutes int                       `json:"window_minutes"`
	TotalWindows  int                       `json:"total_windows"`
	Factors       map[State]passage.Factors `json:"growth_factors"`
	Stats         map[State]StateStat       `json:"growth_stats"`
}

func schemaErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

// decodeStrict rejects unknown fields so an artifact of another kind or
// version does not load silently.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// MarshalJSON encodes a trained model as its artifact.
func (m *TimeOfDayModel) MarshalJSON() ([]byte, error) {
	if !m.Trained() {
		return nil, ErrUntrained
	}
	a := todArtifact{
		Schema:       TimeOfDaySchema,
		Options:      m.Options,
		GlobalRatios: &m.GlobalRatios,
		TotalRecords: m.TotalRecords,
		Hourly:       make([]hourArtifact, HoursPerDay),
	}
	for h := range m.Hours {
		stats := make(map[passage.Algorithm]HourStat, passage.NumAlgorithms)
		for _, alg := range passage.Algorithms {
			stats[alg] = m.Hours[h].Stats[alg]
		}
		f := m.Hours[h].Factors
		a.Hourly[h] = hourArtifact{
			Hour:        h,
			RecordCount: m.Hours[h].RecordCount,
			MeanActual:  m.Hours[h].MeanActual,
			Factors:     &f,
			Stats:       stats,
		}
	}
	return json.MarshalIndent(a, "", "  ")
}

// UnmarshalJSON restores a model from its artifact. Every hour and every
// algorithm must be present.
func (m *TimeOfDayModel) UnmarshalJSON(data []byte) error {
	var a todArtifact
	if err := decodeStrict(data, &a); err != nil {
		return err
	}
	if a.Schema != TimeOfDaySchema {
		return schemaErr("schema %q, want %q", a.Schema, TimeOfDaySchema)
	}
	if err := a.Options.Validate(); err != nil {
		return schemaErr("options: %v", err)
	}
	if a.GlobalRatios == nil {
		return schemaErr("missing global_ratios")
	}
	if len(a.Hourly) != HoursPerDay {
		return schemaErr("%d hourly entries, want %d", len(a.Hourly), HoursPerDay)
	}

	out := TimeOfDayModel{
		Options:      a.Options,
		GlobalRatios: *a.GlobalRatios,
		TotalRecords: a.TotalRecords,
		trained:      true,
	}
	for i, h := range a.Hourly {
		if h.Hour != i {
			return schemaErr("hourly entry %d is for hour %d", i, h.Hour)
		}
		if h.Factors == nil {
			return schemaErr("hour %d: missing factors", i)
		}
		if h.RecordCount < 0 {
			return schemaErr("hour %d: negative record_count", i)
		}
		out.Hours[i].Factors = *h.Factors
		out.Hours[i].RecordCount = h.RecordCount
		out.Hours[i].MeanActual = h.MeanActual
		for _, alg := range passage.Algorithms {
			st, ok := h.Stats[alg]
			if !ok {
				return schemaErr("hour %d: missing stats for %s", i, alg)
			}
			out.Hours[i].Stats[alg] = st
		}
	}
	*m = out
	return nil
}

// MarshalJSON encodes a trained model as its artifact.
func (m *QueueGrowthModel) MarshalJSON() ([]byte, error) {
	if !m.Trained() {
		return nil, ErrUntrained
	}
	return json.MarshalIndent(growthArtifact{
		Schema:        QueueGrowthSchema,
		WindowMinutes: m.WindowMinutes,
		TotalWindows:  m.TotalWindows,
		Factors:       m.Factors,
		Stats:         m.Stats,
	}, "", "  ")
}

// UnmarshalJSON restores a model from its artifact. Every state must be
// present and no other.
func (m *QueueGrowthModel) UnmarshalJSON(data []byte) error {
	var a growthArtifact
	if err := decodeStrict(data, &a); err != nil {
		return err
	}
	if a.Schema != QueueGrowthSchema {
		return schemaErr("schema %q, want %q", a.Schema, QueueGrowthSchema)
	}
	if err := (GrowthOptions{WindowMinutes: a.WindowMinutes}).Validate(); err != nil {
		return schemaErr("%v", err)
	}
	if len(a.Factors) != len(States) || len(a.Stats) != len(States) {
		return schemaErr("want factors and stats for exactly %d states", len(States))
	}
	for _, s := range States {
		if _, ok := a.Factors[s]; !ok {
			return schemaErr("missing factors for state %s", s)
		}
		if _, ok := a.Stats[s]; !ok {
			return schemaErr("missing stats for state %s", s)
		}
	}
	*m = QueueGrowthModel{
		WindowMinutes: a.WindowMinutes,
		Factors:       a.Factors,
		Stats:         a.Stats,
		TotalWindows:  a.TotalWindows,
		trained:       true,
	}
	return nil
}

// Save writes the model to path atomically.
func (m *TimeOfDayModel) Save(fsys fsutil.FileSystem, path string) error {
	return save(fsys, path, m)
}

// Save writes the model to path atomically.
func (m *QueueGrowthModel) Save(fsys fsutil.FileSystem, path string) error {
	return save(fsys, path, m)
}

func save(fsys fsutil.FileSystem, path string, m json.Marshaler) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadTimeOfDay reads a time-of-day artifact.
func LoadTimeOfDay(fsys fsutil.FileSystem, path string) (*TimeOfDayModel, error) {
	m := new(TimeOfDayModel)
	if err := load(fsys, path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadQueueGrowth reads a queue-growth artifact.
func LoadQueueGrowth(fsys fsutil.FileSystem, path string) (*QueueGrowthModel, error) {
	m := new(QueueGrowthModel)
	if err := load(fsys, path, m); err != nil {
		return nil, err
	}
	return m, nil
}

func load(fsys fsutil.FileSystem, path string, m json.Unmarshaler) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("load model %s: %w", path, err)
	}
	return nil
}

// SaveModels writes both artifacts into dir under their default names.
func SaveModels(fsys fsutil.FileSystem, dir string, tod *TimeOfDayModel, growth *QueueGrowthModel) error {
	if err := tod.Save(fsys, filepath.Join(dir, TimeOfDayFile)); err != nil {
		return fmt.Errorf("time-of-day: %w", err)
	}
	if err := growth.Save(fsys, filepath.Join(dir, QueueGrowthFile)); err != nil {
		return fmt.Errorf("queue-growth: %w", err)
	}
	return nil
}

// LoadModels reads both artifacts from dir.
func LoadModels(fsys fsutil.FileSystem, dir string) (*TimeOfDayModel, *QueueGrowthModel, error) {
	tod, err := LoadTimeOfDay(fsys, filepath.Join(dir, TimeOfDayFile))
	if err != nil {
		return nil, nil, err
	}
	growth, err := LoadQueueGrowth(fsys, filepath.Join(dir, QueueGrowthFile))
	if err != nil {
		return nil, nil, err
	}
	return tod, growth, nil
}
