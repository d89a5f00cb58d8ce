// Package api serves stored filter runs, accuracy summaries, model
// artifacts and the chart dashboard over HTTP, read-only.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/queue.report/internal/analysis"
	"github.com/banshee-data/queue.report/internal/config"
	"github.com/banshee-data/queue.report/internal/db"
	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/httputil"
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/outlier"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/report"
	"github.com/banshee-data/queue.report/internal/timeutil"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// modelKinds maps the URL name of a model to its artifact schema.
var modelKinds = map[string]string{
	"time_of_day":  enhance.TimeOfDaySchema,
	"queue_growth": enhance.QueueGrowthSchema,
}

type Server struct {
	db      *db.DB
	cfg     *config.AnalysisConfig
	loc     *time.Location
	metrics *metrics
}

func NewServer(store *db.DB, cfg *config.AnalysisConfig) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Server{db: store, cfg: cfg, loc: loc, metrics: newMetrics(store)}, nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"/api/config", s.showConfig},
		{"/api/runs", s.listRuns},
		{"/api/runs/", s.showRun},
		{"/api/summary", s.showSummary},
		{"/api/models/", s.showModel},
		{"/charts/dashboard", s.showDashboard},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, s.metrics.instrument(rt.pattern, rt.handler))
	}
	mux.Handle("/metrics", s.metrics.handler())
	return mux
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"timezone":           s.loc.String(),
		"wait_units":         s.cfg.GetWaitUnits(),
		"queue_bucket_width": s.cfg.GetQueueBucketWidth(),
		"conservative_bias":  s.cfg.GetConservativeBias(),
		"outlier":            s.cfg.OutlierConfig(),
		"time_of_day":        s.cfg.TimeOfDayOptions(),
		"queue_growth":       s.cfg.GrowthOptions(),
	})
}

// runSummary is the list form of a filter run.
type runSummary struct {
	RunID          string    `json:"run_id"`
	Created        time.Time `json:"created"`
	Source         string    `json:"source"`
	TotalRecords   int       `json:"total_records"`
	RemovedRecords int       `json:"removed_records"`
	RemovalRatePct float64   `json:"removal_rate_pct"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runs, err := s.db.FilterRuns(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve filter runs: %v", err))
		return
	}
	out := make([]runSummary, len(runs))
	for i, run := range runs {
		out[i] = runSummary{
			RunID:          run.RunID,
			Created:        run.Created.In(s.loc),
			Source:         run.Source,
			TotalRecords:   run.Stats.TotalRecords,
			RemovedRecords: run.Stats.RemovedRecords,
			RemovalRatePct: run.Stats.RemovalRatePct,
		}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		httputil.BadRequest(w, "Invalid run id")
		return
	}
	run, err := s.db.FilterRun(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "Filter run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve filter run: %v", err))
		return
	}
	httputil.WriteJSONOK(w, struct {
		RunID   string        `json:"run_id"`
		Created time.Time     `json:"created"`
		Source  string        `json:"source"`
		Stats   outlier.Stats `json:"stats"`
	}{run.RunID, run.Created.In(s.loc), run.Source, run.Stats})
}

// dayRange reads the optional from/to (YYYYMMDD, inclusive) parameters.
func (s *Server) dayRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if from, err = timeutil.ParseDay(v, s.loc); err != nil {
			return from, to, fmt.Errorf("invalid 'from' parameter")
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = timeutil.ParseDay(v, s.loc); err != nil {
			return from, to, fmt.Errorf("invalid 'to' parameter")
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// records loads the requested range and filters it unless raw=true.
func (s *Server) records(r *http.Request) ([]passage.Record, *outlier.Stats, int, error) {
	from, to, err := s.dayRange(r)
	if err != nil {
		return nil, nil, http.StatusBadRequest, err
	}
	records, err := s.db.Passages(r.Context(), from, to)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, fmt.Errorf("Failed to retrieve passages: %v", err)
	}
	if raw, _ := strconv.ParseBool(r.URL.Query().Get("raw")); raw {
		return records, nil, http.StatusOK, nil
	}
	res := outlier.Filter(records, s.cfg.OutlierConfig())
	return res.Records, &res.Stats, http.StatusOK, nil
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	records, _, status, err := s.records(r)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}
	httputil.WriteJSONOK(w, analysis.Analyze(records, analysis.Options{BucketWidth: s.cfg.GetQueueBucketWidth()}))
}

func (s *Server) showModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	kind, ok := modelKinds[strings.TrimPrefix(r.URL.Path, "/api/models/")]
	if !ok {
		httputil.NotFound(w, "Unknown model kind")
		return
	}
	art, err := s.db.LatestModelArtifact(r.Context(), kind)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "No trained model stored")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve model: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(art.Payload)
}

func (s *Server) latestModels(r *http.Request) (*enhance.TimeOfDayModel, *enhance.QueueGrowthModel) {
	var tod *enhance.TimeOfDayModel
	if art, err := s.db.LatestModelArtifact(r.Context(), enhance.TimeOfDaySchema); err == nil {
		m := new(enhance.TimeOfDayModel)
		if err := m.UnmarshalJSON(art.Payload); err == nil {
			tod = m
		}
	}
	var growth *enhance.QueueGrowthModel
	if art, err := s.db.LatestModelArtifact(r.Context(), enhance.QueueGrowthSchema); err == nil {
		m := new(enhance.QueueGrowthModel)
		if err := m.UnmarshalJSON(art.Payload); err == nil {
			growth = m
		}
	}
	return tod, growth
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	records, stats, status, err := s.records(r)
	if err != nil {
		httputil.WriteJSONError(w, status, err.Error())
		return
	}

	tod, growth := s.latestModels(r)
	d := report.Dashboard{
		TimeOfDay: tod,
		Growth:    growth,
		Summary:   analysis.Analyze(records, analysis.Options{BucketWidth: s.cfg.GetQueueBucketWidth()}),
		Filter:    stats,
		Unit:      s.cfg.GetWaitUnits(),
	}
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
