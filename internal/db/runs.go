package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/queue.report/internal/outlier"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// FilterRun is one persisted outlier filtering run.
type FilterRun struct {
	RunID   string
	Created time.Time
	Source  string
	Stats   outlier.Stats
}

// RecordFilterRun stores the statistics of a filtering run and returns the
// generated run id. Source is free text naming the input, typically the
// log directory.
func (db *DB) RecordFilterRun(ctx context.Context, source string, stats outlier.Stats) (string, error) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("encode filter stats: %w", err)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO filter_runs (
			run_id, created_unix, source, total_records, removed_records,
			removed_stage1, removed_stage2, kept_small_group, removal_rate_pct, stats_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, db.clock.Now().Unix(), source, stats.TotalRecords, stats.RemovedRecords,
		stats.Breakdown.RemovedStage1, stats.Breakdown.RemovedStage2, stats.Breakdown.KeptSmallGroup,
		stats.RemovalRatePct, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("insert filter run: %w", err)
	}
	return id, nil
}

// FilterRuns lists stored runs, newest first.
func (db *DB) FilterRuns(ctx context.Context) ([]FilterRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, created_unix, source, stats_json
		FROM filter_runs ORDER BY created_unix DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query filter runs: %w", err)
	}
	defer rows.Close()

	var out []FilterRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// FilterRun returns a single run by id.
func (db *DB) FilterRun(ctx context.Context, runID string) (FilterRun, error) {
	row := db.QueryRowContext(ctx, `
		SELECT run_id, created_unix, source, stats_json
		FROM filter_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FilterRun{}, fmt.Errorf("filter run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (FilterRun, error) {
	var (
		run     FilterRun
		created int64
		payload string
	)
	if err := s.Scan(&run.RunID, &created, &run.Source, &payload); err != nil {
		return FilterRun{}, err
	}
	run.Created = time.Unix(created, 0)
	if err := json.Unmarshal([]byte(payload), &run.Stats); err != nil {
		return FilterRun{}, fmt.Errorf("decode filter run %s: %w", run.RunID, err)
	}
	return run, nil
}
