package enhance

import (
	"fmt"

	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/stats"
)

// HoursPerDay is the length of the hourly factor table.
const HoursPerDay = 24

// Defaults for TimeOfDayOptions.
const (
	DefaultMinSamplesPerHour = 10
	DefaultSmoothing         = 0.3
)

// TimeOfDayOptions controls FitTimeOfDay.
type TimeOfDayOptions struct {
	// MinSamplesPerHour is the number of ratios an hour needs before its
	// own mean contributes to its factor.
	MinSamplesPerHour int `json:"min_samples_per_hour"`
	// Smoothing is the weight of the hour's own mean against the global
	// mean, in [0, 1].
	Smoothing float64 `json:"smoothing_factor"`
}

// DefaultTimeOfDayOptions returns the production settings.
func DefaultTimeOfDayOptions() TimeOfDayOptions {
	return TimeOfDayOptions{MinSamplesPerHour: DefaultMinSamplesPerHour, Smoothing: DefaultSmoothing}
}

// Validate checks the option ranges.
func (o TimeOfDayOptions) Validate() error {
	if o.MinSamplesPerHour < 1 {
		return fmt.Errorf("min_samples_per_hour must be at least 1, got %d", o.MinSamplesPerHour)
	}
	if o.Smoothing < 0 || o.Smoothing > 1 {
		return fmt.Errorf("smoothing_factor must be in [0, 1], got %f", o.Smoothing)
	}
	return nil
}

// HourStat is the training diagnostic for one algorithm at one hour.
type HourStat struct {
	Samples   int     `json:"samples"`
	MeanRatio float64 `json:"mean_ratio"`
	// Smoothed is false when the hour fell back to the global ratio.
	Smoothed bool `json:"smoothed"`
}

// Hour is one row of the hourly factor table.
type Hour struct {
	Factors passage.Factors                 `json:"factors"`
	Stats   [passage.NumAlgorithms]HourStat `json:"stats"`
	// RecordCount and MeanActual cover every record with an observed wait
	// at this hour, whether or not any prediction was usable.
	RecordCount int     `json:"record_count"`
	MeanActual  float64 `json:"avg_actual_time"`
}

// TimeOfDayModel holds an actual/predicted correction factor per
// algorithm for every hour of the day.
type TimeOfDayModel struct {
	Options      TimeOfDayOptions
	GlobalRatios passage.Factors
	Hours        [HoursPerDay]Hour
	TotalRecords int

	trained bool
}

// Trained reports whether the model was fitted or loaded.
func (m *TimeOfDayModel) Trained() bool {
	return m != nil && m.trained
}

// Factor returns the factor for an algorithm at an hour.
func (m *TimeOfDayModel) Factor(hour int, alg passage.Algorithm) float64 {
	return m.Hours[hour].Factors[alg]
}

// HoursWithData counts the hours that had at least one ratio for any
// algorithm.
func (m *TimeOfDayModel) HoursWithData() int {
	n := 0
	for _, h := range m.Hours {
		for _, s := range h.Stats {
			if s.Samples > 0 {
				n++
				break
			}
		}
	}
	return n
}

// FitTimeOfDay learns hourly factors from records. Each record contributes
// actual/predicted for every algorithm whose prediction is positive and
// yields a finite ratio, bucketed by the hour the object entered the queue. Records without an
// observed wait are ignored. With no usable ratios at all every factor is
// 1.0.
func FitTimeOfDay(records []passage.Record, opts TimeOfDayOptions) (*TimeOfDayModel, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var hourly [HoursPerDay][passage.NumAlgorithms][]float64
	var pooled [passage.NumAlgorithms][]float64
	var actuals [HoursPerDay][]float64
	used := 0
	for _, r := range records {
		if !r.HasActual() {
			continue
		}
		used++
		h := r.Hour()
		actuals[h] = append(actuals[h], float64(r.ActualPassTime))
		for _, alg := range passage.Algorithms {
			ratio, ok := ratioOf(r.ActualPassTime, r.Estimate(alg))
			if !ok {
				continue
			}
			hourly[h][alg] = append(hourly[h][alg], ratio)
			pooled[alg] = append(pooled[alg], ratio)
		}
	}

	m := &TimeOfDayModel{Options: opts, TotalRecords: used, trained: true}
	for _, alg := range passage.Algorithms {
		m.GlobalRatios[alg] = 1.0
		if len(pooled[alg]) > 0 {
			m.GlobalRatios[alg] = stats.Mean(pooled[alg])
		}
	}

	for h := 0; h < HoursPerDay; h++ {
		m.Hours[h].RecordCount = len(actuals[h])
		m.Hours[h].MeanActual = stats.Mean(actuals[h])
		for _, alg := range passage.Algorithms {
			ratios := hourly[h][alg]
			global := m.GlobalRatios[alg]
			st := HourStat{Samples: len(ratios)}
			if len(ratios) > 0 {
				st.MeanRatio = stats.Mean(ratios)
			}
			factor := global
			if len(ratios) >= opts.MinSamplesPerHour {
				factor = opts.Smoothing*st.MeanRatio + (1-opts.Smoothing)*global
				st.Smoothed = true
			}
			m.Hours[h].Factors[alg] = factor
			m.Hours[h].Stats[alg] = st
		}
	}

	monitoring.Logf("enhance: time-of-day fitted on %d records, %d/%d hours with data",
		used, m.HoursWithData(), HoursPerDay)
	return m, nil
}

// Annotate sets the TimeOfDay predictions of each record in place.
func (m *TimeOfDayModel) Annotate(records []Annotated) error {
	if !m.Trained() {
		return ErrUntrained
	}
	for i := range records {
		h := records[i].Hour()
		records[i].TimeOfDay = adjust(records[i].Estimates, m.Hours[h].Factors)
	}
	return nil
}

// Transform returns records annotated with time-of-day adjusted
// predictions, in input order.
func (m *TimeOfDayModel) Transform(records []passage.Record) ([]Annotated, error) {
	out := Wrap(records)
	if err := m.Annotate(out); err != nil {
		return nil, err
	}
	return out, nil
}
