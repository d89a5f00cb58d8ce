package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/queue.report/internal/config"
	"github.com/banshee-data/queue.report/internal/db"
	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/outlier"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func utcConfig() *config.AnalysisConfig {
	tz := "UTC"
	cfg := config.EmptyAnalysisConfig()
	cfg.Timezone = &tz
	return cfg
}

func fixture() []passage.Record {
	records := testutil.AtHour(8, 12, 1, 100, 130)
	// next day
	for _, r := range testutil.AtHour(9, 12, 5, 130, 150) {
		r.Timestamp = r.Timestamp.AddDate(0, 0, 1)
		records = append(records, r)
	}
	return records
}

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.SetLocation(time.UTC)

	_, err = store.InsertPassages(context.Background(), fixture())
	require.NoError(t, err)

	s, err := NewServer(store, utcConfig())
	require.NoError(t, err)
	return s, store
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	LoggingMiddleware(s.ServeMux()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestShowConfig(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.JSONEq(t, `"UTC"`, string(cfg["timezone"]))
	assert.JSONEq(t, `"s"`, string(cfg["wait_units"]))
	assert.Contains(t, cfg, "outlier")
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/config", "/api/runs", "/api/runs/x", "/api/summary", "/api/models/time_of_day", "/charts/dashboard"} {
		rec := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestRuns(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	res := outlier.Filter(fixture(), outlier.DefaultConfig())
	id, err := store.RecordFilterRun(ctx, "logs", res.Stats)
	require.NoError(t, err)

	rec := get(t, s, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []runSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)
	assert.Equal(t, len(fixture()), runs[0].TotalRecords)

	rec = get(t, s, "/api/runs/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var run struct {
		RunID string        `json:"run_id"`
		Stats outlier.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, res.Stats.FilteredRecords, run.Stats.FilteredRecords)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/runs/missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/runs/").Code)
}

func TestShowSummary(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		query  string
		status int
		total  int
	}{
		{"", http.StatusOK, 24},
		{"?raw=true", http.StatusOK, 24},
		{"?from=20240305&to=20240305", http.StatusOK, 12},
		{"?from=20240306", http.StatusOK, 12},
		{"?from=2024-03-05", http.StatusBadRequest, 0},
		{"?to=bad", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := get(t, s, "/api/summary"+tt.query)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var sum struct {
				Total int `json:"total_records"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
			assert.Equal(t, tt.total, sum.Total)
		})
	}
}

func TestShowModel(t *testing.T) {
	s, store := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/models/time_of_day").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/models/bogus").Code)

	tod, err := enhance.FitTimeOfDay(fixture(), enhance.DefaultTimeOfDayOptions())
	require.NoError(t, err)
	payload, err := tod.MarshalJSON()
	require.NoError(t, err)
	_, err = store.SaveModelArtifact(context.Background(), enhance.TimeOfDaySchema, payload)
	require.NoError(t, err)

	rec := get(t, s, "/api/models/time_of_day")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(payload), rec.Body.String())
}

func TestShowDashboard(t *testing.T) {
	s, store := newTestServer(t)

	rec := get(t, s, "/charts/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Mean absolute error by zone")
	assert.NotContains(t, rec.Body.String(), "Time-of-day correction factors")

	tod, err := enhance.FitTimeOfDay(fixture(), enhance.DefaultTimeOfDayOptions())
	require.NoError(t, err)
	payload, err := tod.MarshalJSON()
	require.NoError(t, err)
	_, err = store.SaveModelArtifact(context.Background(), enhance.TimeOfDaySchema, payload)
	require.NoError(t, err)

	rec = get(t, s, "/charts/dashboard?raw=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Time-of-day correction factors")
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.ServeMux()

	get(t, s, "/api/config")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `queue_report_http_requests_total{code="200",method="GET",route="/api/config"} 1`)
	assert.Contains(t, body, `queue_report_http_request_duration_seconds_count{route="/api/config"} 1`)
	assert.Contains(t, body, "queue_report_stored_passages 24")
	assert.Contains(t, body, "go_goroutines")
}

func TestAdminRoutesAlongsideAPI(t *testing.T) {
	s, store := newTestServer(t)
	mux := s.ServeMux()
	require.NoError(t, store.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
