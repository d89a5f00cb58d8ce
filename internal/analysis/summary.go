package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/stats"
)

// Issue thresholds, in seconds.
const (
	HighErrorThreshold       = 100
	UnderestimationThreshold = -30
	OverestimationThreshold  = 50
	ShortActualThreshold     = 40
	LongActualThreshold      = 500
)

// IQRMultiplier sets the Tukey fences for IQROutliers.
const IQRMultiplier = 1.5

// Group aggregates one slice of the records.
type Group struct {
	Count           int             `json:"record_count"`
	MeanObjectCount float64         `json:"avg_object_count"`
	MeanActual      float64         `json:"avg_actual_pass_time"`
	MAE             passage.Factors `json:"mae"`
	MeanError       passage.Factors `json:"mean_error"`
}

// Issues counts records that cross the issue thresholds.
type Issues struct {
	HighError       map[passage.Algorithm]int `json:"high_error_cases"`
	Underestimation map[passage.Algorithm]int `json:"underestimation"`
	Overestimation  map[passage.Algorithm]int `json:"overestimation"`
	ShortActual     int                       `json:"short_actual_times"`
	LongActual      int                       `json:"long_actual_times"`
	// IQROutliers counts actual waits outside the whole-sample Tukey
	// fences, ignoring zone and congestion.
	IQROutliers int `json:"iqr_outlier_actual_times"`
}

// CongestionKey identifies a congestion level within a zone group.
type CongestionKey struct {
	Group passage.ZoneGroup
	Level passage.CongestionLevel
}

func (k CongestionKey) String() string {
	return string(k.Group) + "/" + string(k.Level)
}

// MarshalText lets CongestionKey key JSON objects.
func (k CongestionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the String form.
func (k *CongestionKey) UnmarshalText(text []byte) error {
	g, l, ok := strings.Cut(string(text), "/")
	if !ok {
		return fmt.Errorf("invalid congestion key %q", text)
	}
	k.Group, k.Level = passage.ZoneGroup(g), passage.CongestionLevel(l)
	return nil
}

// Options controls Analyze.
type Options struct {
	BucketWidth int
}

// Summary is the full accuracy report for a record set.
type Summary struct {
	TotalRecords int       `json:"total_records"`
	Analyzed     int       `json:"analyzed_records"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Zones        []int     `json:"zones"`

	ObjectCount    stats.Summary `json:"object_count_stats"`
	ActualPassTime stats.Summary `json:"actual_pass_time_stats"`

	Accuracy     map[passage.Algorithm]Accuracy `json:"accuracy"`
	ByZone       map[int]Group                  `json:"by_zone"`
	ByCongestion map[CongestionKey]Group        `json:"by_congestion"`
	ByBucket     map[passage.QueueBucket]Group  `json:"by_queue_bucket"`
	ByWeekday    map[string]Group               `json:"by_weekday"`
	ByDate       map[string]Group               `json:"by_date"`
	Issues       Issues                         `json:"issues"`
}

type groupAcc struct {
	n       int
	objects float64
	actual  float64
	absErr  passage.Factors
	err     passage.Factors
}

func (a *groupAcc) add(r passage.Record) {
	a.n++
	a.objects += float64(r.ObjectCount)
	a.actual += float64(r.ActualPassTime)
	for _, alg := range passage.Algorithms {
		e := r.Estimate(alg) - float64(r.ActualPassTime)
		a.err[alg] += e
		a.absErr[alg] += math.Abs(e)
	}
}

func (a *groupAcc) group() Group {
	n := float64(a.n)
	g := Group{Count: a.n, MeanObjectCount: a.objects / n, MeanActual: a.actual / n}
	for _, alg := range passage.Algorithms {
		g.MAE[alg] = a.absErr[alg] / n
		g.MeanError[alg] = a.err[alg] / n
	}
	return g
}

func finish[K comparable](accs map[K]*groupAcc) map[K]Group {
	out := make(map[K]Group, len(accs))
	for k, a := range accs {
		out[k] = a.group()
	}
	return out
}

func bump[K comparable](accs map[K]*groupAcc, k K, r passage.Record) {
	a, ok := accs[k]
	if !ok {
		a = &groupAcc{}
		accs[k] = a
	}
	a.add(r)
}

// Analyze builds the accuracy report. Records without an observed wait
// count towards TotalRecords only.
func Analyze(records []passage.Record, opts Options) *Summary {
	width := opts.BucketWidth
	if width < 1 {
		width = passage.DefaultBucketWidth
	}

	s := &Summary{
		TotalRecords: len(records),
		Accuracy:     make(map[passage.Algorithm]Accuracy, passage.NumAlgorithms),
		Issues: Issues{
			HighError:       make(map[passage.Algorithm]int),
			Underestimation: make(map[passage.Algorithm]int),
			Overestimation:  make(map[passage.Algorithm]int),
		},
	}

	byZone := make(map[int]*groupAcc)
	byCongestion := make(map[CongestionKey]*groupAcc)
	byBucket := make(map[passage.QueueBucket]*groupAcc)
	byWeekday := make(map[string]*groupAcc)
	byDate := make(map[string]*groupAcc)

	var objects, actuals []float64
	zones := make(map[int]struct{})
	for _, r := range records {
		if !r.HasActual() {
			continue
		}
		s.Analyzed++
		if s.Start.IsZero() || r.Timestamp.Before(s.Start) {
			s.Start = r.Timestamp
		}
		if r.Timestamp.After(s.End) {
			s.End = r.Timestamp
		}
		zones[r.ZoneID] = struct{}{}
		objects = append(objects, float64(r.ObjectCount))
		actuals = append(actuals, float64(r.ActualPassTime))

		bump(byZone, r.ZoneID, r)
		if r.Congestion.IsValid() {
			bump(byCongestion, CongestionKey{Group: r.Group(), Level: r.Congestion}, r)
		}
		bump(byBucket, passage.BucketFor(r.ObjectCount, width), r)
		bump(byWeekday, r.Timestamp.Weekday().String(), r)
		bump(byDate, r.Date(), r)

		for _, alg := range passage.Algorithms {
			e := r.Estimate(alg) - float64(r.ActualPassTime)
			if math.Abs(e) > HighErrorThreshold {
				s.Issues.HighError[alg]++
			}
			if e < UnderestimationThreshold {
				s.Issues.Underestimation[alg]++
			}
			if e > OverestimationThreshold {
				s.Issues.Overestimation[alg]++
			}
		}
		if r.ActualPassTime < ShortActualThreshold {
			s.Issues.ShortActual++
		}
		if r.ActualPassTime > LongActualThreshold {
			s.Issues.LongActual++
		}
	}

	for z := range zones {
		s.Zones = append(s.Zones, z)
	}
	sort.Ints(s.Zones)
	s.ObjectCount = stats.Summarize(objects)
	s.ActualPassTime = stats.Summarize(actuals)
	s.Issues.IQROutliers = len(stats.IQROutliers(actuals, IQRMultiplier))
	for _, alg := range passage.Algorithms {
		s.Accuracy[alg] = Measure(records, alg)
	}
	s.ByZone = finish(byZone)
	s.ByCongestion = finish(byCongestion)
	s.ByBucket = finish(byBucket)
	s.ByWeekday = finish(byWeekday)
	s.ByDate = finish(byDate)
	return s
}

// Buckets returns the queue buckets present in the summary in ascending
// order.
func (s *Summary) Buckets() []passage.QueueBucket {
	out := make([]passage.QueueBucket, 0, len(s.ByBucket))
	for b := range s.ByBucket {
		out = append(out, b)
	}
	passage.SortBuckets(out)
	return out
}
