package enhance

import (
	"math"

	"github.com/banshee-data/queue.report/internal/passage"
)

// Annotated is a record together with the adjustments attached by the
// models. Fields are zero until the corresponding step has run.
type Annotated struct {
	passage.Record

	TimeOfDay   passage.Predictions
	QueueState  State
	QueueGrowth passage.Predictions
	Enhanced    passage.Predictions
}

// Wrap lifts records into Annotated values.
func Wrap(records []passage.Record) []Annotated {
	out := make([]Annotated, len(records))
	for i, r := range records {
		out[i].Record = r
	}
	return out
}

// ratioOf returns actual/pred when pred is positive and the quotient is
// finite. A vanishing prediction overflows to +Inf, which an artifact
// cannot hold.
func ratioOf(actual int, pred float64) (float64, bool) {
	if pred <= 0 {
		return 0, false
	}
	r := float64(actual) / pred
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// adjust scales each estimate by its algorithm's factor and rounds half to
// even.
func adjust(estimates, factors passage.Factors) passage.Predictions {
	var p passage.Predictions
	for _, alg := range passage.Algorithms {
		p[alg] = round(estimates[alg] * factors[alg])
	}
	return p
}

func round(v float64) int64 {
	return int64(math.RoundToEven(v))
}
