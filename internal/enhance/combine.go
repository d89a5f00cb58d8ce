package enhance

import (
	"fmt"

	"github.com/banshee-data/queue.report/internal/passage"
)

// DefaultConservativeBias keeps enhanced estimates on the long side: the
// operators prefer over-stating a wait to under-stating it.
const DefaultConservativeBias = 1.60

// impliedFactor recovers the multiplier a model applied from its rounded
// output.
func impliedFactor(original float64, adjusted int64) float64 {
	if original <= 0 {
		return 1.0
	}
	return float64(adjusted) / original
}

// CombineFactors multiplies the time-of-day and queue-growth factors
// implied by their adjusted predictions with bias, and applies the product
// to original.
func CombineFactors(original float64, tod, growth int64, bias float64) int64 {
	factor := impliedFactor(original, tod) * impliedFactor(original, growth) * bias
	return round(original * factor)
}

// ApplyAll enhances records with both models. The result is sorted by
// timestamp (stable), carries every intermediate annotation, and its
// Enhanced predictions combine both adjustments with bias. The input slice
// is not modified.
func ApplyAll(records []passage.Record, tod *TimeOfDayModel, growth *QueueGrowthModel, bias float64) ([]Annotated, error) {
	if !tod.Trained() {
		return nil, fmt.Errorf("time-of-day model: %w", ErrUntrained)
	}
	if !growth.Trained() {
		return nil, fmt.Errorf("queue-growth model: %w", ErrUntrained)
	}
	if bias <= 0 {
		return nil, fmt.Errorf("conservative bias must be positive, got %f", bias)
	}

	sorted := append([]passage.Record(nil), records...)
	passage.SortByTime(sorted)

	out := Wrap(sorted)
	if err := tod.Annotate(out); err != nil {
		return nil, err
	}
	if err := growth.Annotate(out); err != nil {
		return nil, err
	}
	for i := range out {
		a := &out[i]
		for _, alg := range passage.Algorithms {
			a.Enhanced[alg] = CombineFactors(a.Estimates[alg], a.TimeOfDay[alg], a.QueueGrowth[alg], bias)
		}
	}
	return out, nil
}

// Prediction returns the estimate of alg at the given stage, for
// comparisons between the original and enhanced sets.
func (a Annotated) Prediction(alg passage.Algorithm, stage Stage) float64 {
	switch stage {
	case StageTimeOfDay:
		return float64(a.TimeOfDay[alg])
	case StageQueueGrowth:
		return float64(a.QueueGrowth[alg])
	case StageEnhanced:
		return float64(a.Enhanced[alg])
	default:
		return a.Estimates[alg]
	}
}

// Stage names a column of Annotated predictions.
type Stage string

const (
	StageOriginal    Stage = "original"
	StageTimeOfDay   Stage = "tod_adjusted"
	StageQueueGrowth Stage = "qg_adjusted"
	StageEnhanced    Stage = "enhanced"
)

// Records returns the records with the predictions of stage substituted
// as estimates, so accuracy analysis can run unchanged over any column.
func Records(annotated []Annotated, stage Stage) []passage.Record {
	out := make([]passage.Record, len(annotated))
	for i, a := range annotated {
		r := a.Record
		for _, alg := range passage.Algorithms {
			r.Estimates[alg] = a.Prediction(alg, stage)
		}
		out[i] = r
	}
	return out
}
