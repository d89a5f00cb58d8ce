package enhance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/testutil"
)

func TestCombineFactors(t *testing.T) {
	tests := []struct {
		name        string
		original    float64
		tod, growth int64
		bias        float64
		want        int64
	}{
		{"both adjustments", 100, 110, 90, 1.6, 158},
		{"neutral", 100, 100, 100, 1.0, 100},
		{"bias only", 100, 100, 100, DefaultConservativeBias, 160},
		{"zero original", 0, 7, 9, 1.6, 0},
		{"negative original keeps neutral factors", -10, -11, -12, 1.6, -16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CombineFactors(tt.original, tt.tod, tt.growth, tt.bias))
		})
	}
}

func neutralModels(t *testing.T) (*TimeOfDayModel, *QueueGrowthModel) {
	t.Helper()
	tod, err := FitTimeOfDay(nil, DefaultTimeOfDayOptions())
	require.NoError(t, err)
	growth, err := FitQueueGrowth(nil, DefaultGrowthOptions())
	require.NoError(t, err)
	return tod, growth
}

func TestApplyAll(t *testing.T) {
	tod, growth := neutralModels(t)
	in := []passage.Record{
		testutil.Passage(10*time.Minute, 1, 10, 90, testutil.WithEstimates(100, 0, 50)),
		testutil.Passage(0, 1, 10, 90, testutil.WithEstimates(100, 100, 100)),
	}
	before := append([]passage.Record(nil), in...)

	out, err := ApplyAll(in, tod, growth, DefaultConservativeBias)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, before, in, "input must not be reordered")

	// sorted by timestamp
	assert.True(t, out[0].Timestamp.Before(out[1].Timestamp))
	assert.Equal(t, passage.Predictions{160, 160, 160}, out[0].Enhanced)
	assert.Equal(t, passage.Predictions{160, 0, 80}, out[1].Enhanced)
	assert.Equal(t, StateStable, out[0].QueueState)
	assert.Equal(t, passage.Predictions{100, 100, 100}, out[0].TimeOfDay)
}

func TestApplyAllTrainedModels(t *testing.T) {
	tod, err := FitTimeOfDay(hourlyFixture(), DefaultTimeOfDayOptions())
	require.NoError(t, err)
	growth, err := FitQueueGrowth(growthFixture(), DefaultGrowthOptions())
	require.NoError(t, err)

	out, err := ApplyAll(growthFixture(), tod, growth, 1.0)
	require.NoError(t, err)
	for _, a := range out {
		for _, alg := range passage.Algorithms {
			want := CombineFactors(a.Estimates[alg], a.TimeOfDay[alg], a.QueueGrowth[alg], 1.0)
			assert.Equal(t, want, a.Enhanced[alg])
		}
	}
}

func TestApplyAllErrors(t *testing.T) {
	tod, growth := neutralModels(t)

	_, err := ApplyAll(nil, &TimeOfDayModel{}, growth, 1.6)
	assert.ErrorIs(t, err, ErrUntrained)
	_, err = ApplyAll(nil, tod, nil, 1.6)
	assert.ErrorIs(t, err, ErrUntrained)
	_, err = ApplyAll(nil, tod, growth, 0)
	assert.Error(t, err)
}

func TestRecordsByStage(t *testing.T) {
	tod, growth := neutralModels(t)
	out, err := ApplyAll([]passage.Record{testutil.Passage(0, 1, 10, 90, testutil.WithEstimate(100))}, tod, growth, 1.6)
	require.NoError(t, err)

	assert.Equal(t, passage.Uniform(100), Records(out, StageOriginal)[0].Estimates)
	assert.Equal(t, passage.Uniform(100), Records(out, StageTimeOfDay)[0].Estimates)
	assert.Equal(t, passage.Uniform(100), Records(out, StageQueueGrowth)[0].Estimates)
	assert.Equal(t, passage.Uniform(160), Records(out, StageEnhanced)[0].Estimates)
}
