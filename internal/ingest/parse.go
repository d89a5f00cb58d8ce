// Package ingest reads passage logs: one CSV file per day named
// passingObject_YYYYMMDD.csv, in either the legacy 7-column layout with a
// header or the 10-column layout with entry and exit clock times.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/queue.report/internal/passage"
)

// TimestampLayout is the record timestamp format in both layouts.
const TimestampLayout = "2006-01-02 15:04:05"

// Format identifies a log layout.
type Format string

const (
	// FormatLegacy is timestamp,zone_id,objectCount,lidarEstTime,
	// throughputEstTime,finalEstTime,actualPassTime with a header row.
	FormatLegacy Format = "legacy"
	// FormatTenColumn is timestamp,objectId,zoneId,zoneObjectCount,inTime,
	// outTime,actualPassTime,lidarEstTime,throughputEstTime,finalEstTime
	// where actualPassTime is MM:SS or HH:MM:SS. The header is optional.
	FormatTenColumn Format = "ten_column"
)

const (
	legacyColumns    = 7
	tenColumnColumns = 10
)

// FileStats counts what a single file yielded.
type FileStats struct {
	Name      string `json:"name"`
	Format    Format `json:"format"`
	Records   int    `json:"records"`
	Malformed int    `json:"malformed"`
}

// detectFormat inspects the first row. A header whose first cell is
// "timestamp" selects the legacy layout unless it names ten columns.
func detectFormat(first []string) (f Format, header bool) {
	if len(first) > 0 && strings.TrimSpace(first[0]) == "timestamp" {
		if len(first) >= tenColumnColumns {
			return FormatTenColumn, true
		}
		return FormatLegacy, true
	}
	return FormatTenColumn, false
}

// Parse reads one log. Timestamps are interpreted in loc. Rows that cannot
// be parsed are skipped and counted in FileStats.Malformed. Congestion is
// derived for every record.
func Parse(r io.Reader, loc *time.Location) ([]passage.Record, FileStats, error) {
	if loc == nil {
		loc = time.Local
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var st FileStats
	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, st, nil
	}
	if err != nil {
		return nil, st, fmt.Errorf("read header: %w", err)
	}
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], "\ufeff")
	}

	format, header := detectFormat(first)
	st.Format = format
	parse := parseTenColumn
	if format == FormatLegacy {
		parse = parseLegacy
	}

	var records []passage.Record
	handle := func(row []string) {
		rec, ok := parse(row, loc)
		if !ok {
			st.Malformed++
			return
		}
		rec.Congestion = passage.Classify(rec)
		records = append(records, rec)
	}
	if !header {
		handle(first)
	}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			st.Malformed++
			continue
		}
		if err != nil {
			return nil, st, fmt.Errorf("read row: %w", err)
		}
		handle(row)
	}
	st.Records = len(records)
	return records, st, nil
}

func parseLegacy(row []string, loc *time.Location) (passage.Record, bool) {
	if len(row) != legacyColumns {
		return passage.Record{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[0]), loc)
	if err != nil {
		return passage.Record{}, false
	}
	zone, err1 := atoi(row[1])
	count, err2 := atoi(row[2])
	est, err3 := estimates(row[3], row[4], row[5])
	actual, err4 := atoi(row[6])
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return passage.Record{}, false
	}

	rec := passage.Record{
		Timestamp:      ts,
		ZoneID:         zone,
		ObjectCount:    count,
		ExitTime:       passage.ClockTimeOf(ts),
		Estimates:      est,
		ActualPassTime: actual,
	}
	if actual >= 0 {
		rec.EntryTime = passage.ClockTimeOf(ts.Add(-time.Duration(actual) * time.Second))
	} else {
		rec.ActualPassTime = passage.MissingPassTime
	}
	return rec, true
}

func parseTenColumn(row []string, loc *time.Location) (passage.Record, bool) {
	if len(row) != tenColumnColumns {
		return passage.Record{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(row[0]), loc)
	if err != nil {
		return passage.Record{}, false
	}
	id, err1 := atoi(row[1])
	zone, err2 := atoi(row[2])
	count, err3 := atoi(row[3])
	est, err4 := estimates(row[7], row[8], row[9])
	actual, err5 := ParseDuration(row[6])
	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return passage.Record{}, false
	}

	rec := passage.Record{
		Timestamp:      ts,
		ObjectID:       id,
		ZoneID:         zone,
		ObjectCount:    count,
		Estimates:      est,
		ActualPassTime: actual,
	}
	// Unparseable clock times are treated as absent, not as a bad row.
	if ct, err := passage.ParseClockTime(row[4]); err == nil {
		rec.EntryTime = ct
	}
	if ct, err := passage.ParseClockTime(row[5]); err == nil {
		rec.ExitTime = ct
	}
	return rec, true
}

// ParseDuration parses an observed wait written as MM:SS or HH:MM:SS.
// Minutes may exceed 59 in the two-part form ("41:51").
func ParseDuration(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	vals := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		vals[i] = n
	}
	switch len(vals) {
	case 2:
		return vals[0]*60 + vals[1], nil
	case 3:
		return vals[0]*3600 + vals[1]*60 + vals[2], nil
	default:
		return 0, fmt.Errorf("invalid duration %q: want MM:SS or HH:MM:SS", s)
	}
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func estimates(lidar, throughput, final string) (passage.Factors, error) {
	var f passage.Factors
	for i, s := range []string{lidar, throughput, final} {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return f, err
		}
		f[i] = v
	}
	return f, nil
}
