package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/queue.report/internal/passage"
)

const legacyLog = `timestamp,zone_id,objectCount,lidarEstTime,throughputEstTime,finalEstTime,actualPassTime
2024-03-05 08:10:00,1,35,300.5,280,290,240
2024-03-05 08:11:00,5,14,200,210,-5,180
2024-03-05 08:12:00,5,14,200,210,205,not-a-number
2024-03-05 8:13,5,14,200,210,205,100
2024-03-05 08:14:00,5,14,200,210,205
`

const tenColumnLog = `2024-03-05 08:10:00,101,2,90,08:02:30,08:10:00,07:30,400,420,410
2024-03-05 08:11:00,102,6,3,08:10:55,08:11:00,00:05,10,12,11
2024-03-05 09:00:00,103,6,20,07:45:00,09:00:00,01:15:00,4000,4100,4200
2024-03-05 09:01:00,104,6,20,bad,09:01:00,00:40,30,30,30
2024-03-05 09:02:00,105,x,20,08:59:00,09:02:00,03:00,30,30,30
2024-03-05 09:03:00,106,6,20,08:59:00,09:03:00,4,30,30,30
`

func TestParseLegacy(t *testing.T) {
	records, st, err := Parse(strings.NewReader(legacyLog), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, FormatLegacy, st.Format)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 3, st.Malformed)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, time.Date(2024, 3, 5, 8, 10, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, 1, r.ZoneID)
	assert.Equal(t, 35, r.ObjectCount)
	assert.Equal(t, passage.Factors{300.5, 280, 290}, r.Estimates)
	assert.Equal(t, 240, r.ActualPassTime)
	// entry is derived from the exit timestamp and the observed wait
	assert.Equal(t, "08:06:00", r.EntryTime.String())
	assert.Equal(t, "08:10:00", r.ExitTime.String())
	assert.Equal(t, passage.LevelLow, r.Congestion)
	assert.Equal(t, 0, r.ObjectID)

	// negative estimates are data
	assert.Equal(t, -5.0, records[1].Estimate(passage.AlgFinal))
	assert.Equal(t, passage.LevelHigh, records[1].Congestion)
}

func TestParseLegacyNegativeActual(t *testing.T) {
	in := "timestamp,zone_id,objectCount,lidarEstTime,throughputEstTime,finalEstTime,actualPassTime\n" +
		"2024-03-05 08:10:00,1,35,300,280,290,-1\n"
	records, _, err := Parse(strings.NewReader(in), time.UTC)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].HasActual())
	assert.False(t, records[0].EntryTime.Valid)
}

func TestParseTenColumn(t *testing.T) {
	records, st, err := Parse(strings.NewReader(tenColumnLog), time.UTC)
	require.NoError(t, err)

	assert.Equal(t, FormatTenColumn, st.Format)
	assert.Equal(t, 2, st.Malformed) // zone "x" and the bare "4" wait
	require.Len(t, records, 4)

	r := records[0]
	assert.Equal(t, 101, r.ObjectID)
	assert.Equal(t, 2, r.ZoneID)
	assert.Equal(t, 90, r.ObjectCount)
	assert.Equal(t, 450, r.ActualPassTime)
	assert.Equal(t, passage.NewClockTime(8, 2, 30), r.EntryTime)
	assert.Equal(t, passage.LevelHigh, r.Congestion)
	assert.Equal(t, 8, r.Hour())

	assert.Equal(t, 5, records[1].ActualPassTime)
	assert.Equal(t, passage.LevelLow, records[1].Congestion)

	// HH:MM:SS wait, entry hour earlier than the timestamp hour
	assert.Equal(t, 4500, records[2].ActualPassTime)
	assert.Equal(t, 7, records[2].Hour())
	assert.Equal(t, passage.LevelVeryHigh, records[2].Congestion)

	// unparseable entry time falls back to the timestamp hour
	assert.False(t, records[3].EntryTime.Valid)
	assert.Equal(t, 9, records[3].Hour())
}

func TestParseTenColumnWithHeader(t *testing.T) {
	in := "timestamp,objectId,zoneId,zoneObjectCount,inTime,outTime,actualPassTime,lidarEstTime,throughputEstTime,finalEstTime\n" +
		"2024-03-05 08:10:00,101,2,90,08:02:30,08:10:00,07:30,400,420,410\n"
	records, st, err := Parse(strings.NewReader(in), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, FormatTenColumn, st.Format)
	assert.Equal(t, 0, st.Malformed)
	require.Len(t, records, 1)
	assert.Equal(t, 101, records[0].ObjectID)
}

func TestParseByteOrderMark(t *testing.T) {
	legacy := "\ufefftimestamp,zone_id,objectCount,lidarEstTime,throughputEstTime,finalEstTime,actualPassTime\n" +
		"2024-03-05 08:10:00,1,35,300,280,290,240\n"
	records, st, err := Parse(strings.NewReader(legacy), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, st.Format)
	assert.Len(t, records, 1)

	// headerless: the first data row must survive
	records, st, err = Parse(strings.NewReader("\ufeff"+tenColumnLog), time.UTC)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, 101, records[0].ObjectID)
	assert.Equal(t, 2, st.Malformed)
}

func TestParseEmpty(t *testing.T) {
	records, st, err := Parse(strings.NewReader(""), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, st.Records)
}

func TestParseLocation(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	records, _, err := Parse(strings.NewReader(tenColumnLog), seoul)
	require.NoError(t, err)
	assert.Equal(t, seoul, records[0].Timestamp.Location())
	assert.Equal(t, 8, records[0].Timestamp.Hour())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:06", 6, false},
		{"1:30", 90, false},
		{"41:51", 2511, false},
		{"01:23:45", 5025, false},
		{" 02:00 ", 120, false},
		{"45", 0, true},
		{"1:2:3:4", 0, true},
		{"aa:10", 0, true},
		{"-1:10", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
