package enhance

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/queue.report/internal/fsutil"
)

func TestTimeOfDayRoundTrip(t *testing.T) {
	m, err := FitTimeOfDay(hourlyFixture(), DefaultTimeOfDayOptions())
	require.NoError(t, err)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, m.Save(mfs, "/models/tod.json"))

	loaded, err := LoadTimeOfDay(mfs, "/models/tod.json")
	require.NoError(t, err)
	if diff := cmp.Diff(m, loaded, cmp.AllowUnexported(TimeOfDayModel{})); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestQueueGrowthRoundTrip(t *testing.T) {
	m, err := FitQueueGrowth(growthFixture(), DefaultGrowthOptions())
	require.NoError(t, err)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, m.Save(mfs, "/models/qg.json"))

	loaded, err := LoadQueueGrowth(mfs, "/models/qg.json")
	require.NoError(t, err)
	if diff := cmp.Diff(m, loaded, cmp.AllowUnexported(QueueGrowthModel{})); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveLoadModelsOnDisk(t *testing.T) {
	tod, err := FitTimeOfDay(hourlyFixture(), DefaultTimeOfDayOptions())
	require.NoError(t, err)
	growth, err := FitQueueGrowth(growthFixture(), DefaultGrowthOptions())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "models")
	osfs := fsutil.OSFileSystem{}
	require.NoError(t, SaveModels(osfs, dir, tod, growth))

	tod2, growth2, err := LoadModels(osfs, dir)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(tod, tod2, cmp.AllowUnexported(TimeOfDayModel{})))
	assert.True(t, cmp.Equal(growth, growth2, cmp.AllowUnexported(QueueGrowthModel{})))
}

func TestSaveUntrained(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	assert.ErrorIs(t, (&TimeOfDayModel{}).Save(mfs, "/m.json"), ErrUntrained)
	assert.ErrorIs(t, (&QueueGrowthModel{}).Save(mfs, "/m.json"), ErrUntrained)
	assert.Empty(t, mfs.Files())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadTimeOfDay(fsutil.NewMemoryFileSystem(), "/nope.json")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSchemaMismatch)
}

// mutate decodes a saved artifact into a generic map, applies f and writes
// it back.
func mutate(t *testing.T, m json.Marshaler, f func(map[string]any)) []byte {
	t.Helper()
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	f(doc)
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

func TestTimeOfDaySchemaMismatch(t *testing.T) {
	m, err := FitTimeOfDay(hourlyFixture(), DefaultTimeOfDayOptions())
	require.NoError(t, err)
	growth, err := FitQueueGrowth(growthFixture(), DefaultGrowthOptions())
	require.NoError(t, err)
	growthData, err := growth.MarshalJSON()
	require.NoError(t, err)

	tests := map[string][]byte{
		"not json":      []byte("{"),
		"other kind":    growthData,
		"wrong version": mutate(t, m, func(d map[string]any) { d["schema"] = "queue.report/time_of_day/v0" }),
		"23 hours": mutate(t, m, func(d map[string]any) {
			d["hourly"] = d["hourly"].([]any)[:23]
		}),
		"hours out of order": mutate(t, m, func(d map[string]any) {
			h := d["hourly"].([]any)
			h[0], h[1] = h[1], h[0]
		}),
		"missing algorithm factor": mutate(t, m, func(d map[string]any) {
			delete(d["hourly"].([]any)[4].(map[string]any)["factors"].(map[string]any), "final")
		}),
		"missing factors": mutate(t, m, func(d map[string]any) {
			delete(d["hourly"].([]any)[4].(map[string]any), "factors")
		}),
		"missing global": mutate(t, m, func(d map[string]any) { delete(d, "global_ratios") }),
		"unknown field":  mutate(t, m, func(d map[string]any) { d["extra"] = 1 }),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var got TimeOfDayModel
			err := json.Unmarshal(data, &got)
			require.Error(t, err)
			if name != "not json" {
				assert.ErrorIs(t, err, ErrSchemaMismatch)
			}
			assert.False(t, got.Trained())
		})
	}
}

func TestQueueGrowthSchemaMismatch(t *testing.T) {
	m, err := FitQueueGrowth(growthFixture(), DefaultGrowthOptions())
	require.NoError(t, err)

	tests := map[string][]byte{
		"wrong schema": mutate(t, m, func(d map[string]any) { d["schema"] = TimeOfDaySchema }),
		"bad window":   mutate(t, m, func(d map[string]any) { d["window_minutes"] = 0 }),
		"missing state": mutate(t, m, func(d map[string]any) {
			delete(d["growth_factors"].(map[string]any), "shrinking")
		}),
		"extra state": mutate(t, m, func(d map[string]any) {
			d["growth_stats"].(map[string]any)["exploding"] = map[string]any{"record_count": 1, "windows": 1}
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			require.NoError(t, mfs.WriteFile("/qg.json", data, 0o644))
			_, err := LoadQueueGrowth(mfs, "/qg.json")
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}
