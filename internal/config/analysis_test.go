package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/outlier"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyAnalysisConfig()

	assert.Equal(t, empty.OutlierConfig(), cfg.OutlierConfig())
	assert.Equal(t, empty.TimeOfDayOptions(), cfg.TimeOfDayOptions())
	assert.Equal(t, empty.GrowthOptions(), cfg.GrowthOptions())
	assert.Equal(t, empty.GetConservativeBias(), cfg.GetConservativeBias())
	assert.Equal(t, empty.GetQueueBucketWidth(), cfg.GetQueueBucketWidth())
	assert.Equal(t, empty.GetWaitUnits(), cfg.GetWaitUnits())
	assert.Equal(t, empty.GetTimezone(), cfg.GetTimezone())
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyAnalysisConfig()
	assert.Equal(t, outlier.DefaultConfig(), cfg.OutlierConfig())
	assert.Equal(t, enhance.DefaultTimeOfDayOptions(), cfg.TimeOfDayOptions())
	assert.Equal(t, enhance.DefaultGrowthOptions(), cfg.GrowthOptions())
	assert.Equal(t, 1.6, cfg.GetConservativeBias())
	assert.Equal(t, 50, cfg.GetQueueBucketWidth())
	assert.Equal(t, "s", cfg.GetWaitUnits())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.NotNil(t, loc)
}

func TestLoadAnalysisConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{
  "min_sample_threshold": 25,
  "enable_stage1_hard_bounds": false,
  "window_minutes": 15,
  "timezone": "Asia/Seoul"
}`)
	cfg, err := LoadAnalysisConfig(path)
	require.NoError(t, err)

	oc := cfg.OutlierConfig()
	assert.Equal(t, 25, oc.MinSampleThreshold)
	assert.False(t, oc.EnableStage1HardBounds)
	assert.True(t, oc.EnableAdaptive)
	assert.Equal(t, 0.3, oc.AdaptiveLowerMult)
	assert.Equal(t, 15, cfg.GrowthOptions().WindowMinutes)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}

func TestLoadAnalysisConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return "/nonexistent/config.json" }},
		{"not json extension", func(t *testing.T) string { return writeConfig(t, "c.yaml", "{}") }},
		{"malformed", func(t *testing.T) string { return writeConfig(t, "c.json", `{"window_minutes": "five"`) }},
		{"too large", func(t *testing.T) string {
			return writeConfig(t, "big.json", string(make([]byte, 2*1024*1024)))
		}},
		{"bad window", func(t *testing.T) string { return writeConfig(t, "c.json", `{"window_minutes": 90}`) }},
		{"bad smoothing", func(t *testing.T) string { return writeConfig(t, "c.json", `{"smoothing_factor": 1.5}`) }},
		{"bad multipliers", func(t *testing.T) string {
			return writeConfig(t, "c.json", `{"adaptive_lower_mult": 2, "adaptive_upper_mult": 1}`)
		}},
		{"bad bias", func(t *testing.T) string { return writeConfig(t, "c.json", `{"conservative_bias": 0}`) }},
		{"bad timezone", func(t *testing.T) string { return writeConfig(t, "c.json", `{"timezone": "Mars/Olympus"}`) }},
		{"bad bucket", func(t *testing.T) string { return writeConfig(t, "c.json", `{"queue_bucket_width": 0}`) }},
		{"bad units", func(t *testing.T) string { return writeConfig(t, "c.json", `{"wait_units": "h"}`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAnalysisConfig(tt.path(t))
			assert.Error(t, err)
		})
	}
}
