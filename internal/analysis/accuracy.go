// Package analysis measures how far the wait-time estimates are from the
// observed waits, overall and broken down by zone, congestion, queue size,
// weekday and date.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/stats"
)

// Accuracy summarises the signed errors (estimate - actual) of one
// algorithm. Positive errors are over-predictions.
type Accuracy struct {
	Count          int     `json:"count"`
	MeanError      float64 `json:"mean_error"`
	MAE            float64 `json:"mae"`
	RMSE           float64 `json:"rmse"`
	MedianError    float64 `json:"median_error"`
	MedianAbsError float64 `json:"median_abs_error"`
	// MeanPctError is the mean of error/actual*100 over records with a
	// positive actual wait.
	MeanPctError float64 `json:"mean_pct_error"`
	StdError     float64 `json:"std_error"`
	// OverPredictionPct is the share of records with error > 0, in percent.
	OverPredictionPct float64 `json:"over_prediction_pct"`
}

// Errors returns estimate - actual for alg over records with a known
// actual wait.
func Errors(records []passage.Record, alg passage.Algorithm) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if r.HasActual() {
			out = append(out, r.Estimate(alg)-float64(r.ActualPassTime))
		}
	}
	return out
}

// Measure computes the accuracy of alg. Records without an observed wait
// are ignored; an empty input yields the zero Accuracy.
func Measure(records []passage.Record, alg passage.Algorithm) Accuracy {
	errs := Errors(records, alg)
	n := len(errs)
	if n == 0 {
		return Accuracy{}
	}

	abs := make([]float64, n)
	over := 0
	for i, e := range errs {
		abs[i] = math.Abs(e)
		if e > 0 {
			over++
		}
	}
	var pct []float64
	for _, r := range records {
		if r.HasActual() && r.ActualPassTime > 0 {
			e := r.Estimate(alg) - float64(r.ActualPassTime)
			pct = append(pct, e/float64(r.ActualPassTime)*100)
		}
	}

	s := stats.Summarize(errs)
	return Accuracy{
		Count:             n,
		MeanError:         s.Mean,
		MAE:               stats.Mean(abs),
		RMSE:              math.Sqrt(floats.Dot(errs, errs) / float64(n)),
		MedianError:       s.Median,
		MedianAbsError:    stats.Median(abs),
		MeanPctError:      stats.Mean(pct),
		StdError:          s.Std,
		OverPredictionPct: float64(over) / float64(n) * 100,
	}
}

// Improvement compares one algorithm before and after enhancement.
type Improvement struct {
	OriginalMAE float64 `json:"original_mae"`
	EnhancedMAE float64 `json:"enhanced_mae"`
	// ImprovementPct is the relative MAE reduction in percent; 0 when the
	// original MAE is 0.
	ImprovementPct float64 `json:"improvement_pct"`
}

// Comparison is the original-versus-enhanced report.
type Comparison struct {
	Original     *Summary                          `json:"original"`
	Enhanced     *Summary                          `json:"enhanced"`
	Improvements map[passage.Algorithm]Improvement `json:"improvements"`
}

// Compare builds the per-algorithm MAE improvement of enhanced over
// original.
func Compare(original, enhanced *Summary) Comparison {
	c := Comparison{
		Original:     original,
		Enhanced:     enhanced,
		Improvements: make(map[passage.Algorithm]Improvement, passage.NumAlgorithms),
	}
	for _, alg := range passage.Algorithms {
		imp := Improvement{
			OriginalMAE: original.Accuracy[alg].MAE,
			EnhancedMAE: enhanced.Accuracy[alg].MAE,
		}
		if imp.OriginalMAE != 0 {
			imp.ImprovementPct = (imp.OriginalMAE - imp.EnhancedMAE) / imp.OriginalMAE * 100
		}
		c.Improvements[alg] = imp
	}
	return c
}
