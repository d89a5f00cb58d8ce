package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/queue.report/internal/passage"
)

const insertPassageSQL = `
	INSERT OR IGNORE INTO passages (
		ts_unix, object_id, zone_id, object_count, entry_time, exit_time,
		lidar_est, throughput_est, final_est, actual_pass_time, congestion
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertPassages stores records in a single transaction and returns how
// many were new. Re-importing a passage already stored is a no-op.
func (db *DB) InsertPassages(ctx context.Context, records []passage.Record) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertPassageSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, r := range records {
		actual := r.ActualPassTime
		if actual < 0 {
			actual = passage.MissingPassTime
		}
		res, err := stmt.ExecContext(ctx,
			r.Timestamp.Unix(), r.ObjectID, r.ZoneID, r.ObjectCount,
			nullClock(r.EntryTime), nullClock(r.ExitTime),
			r.Estimates[passage.AlgLidar], r.Estimates[passage.AlgThroughput], r.Estimates[passage.AlgFinal],
			actual, string(r.Congestion),
		)
		if err != nil {
			return 0, fmt.Errorf("insert passage %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Passages returns stored records with from <= timestamp < to, ordered by
// timestamp. A zero bound is open.
func (db *DB) Passages(ctx context.Context, from, to time.Time) ([]passage.Record, error) {
	query := `SELECT ts_unix, object_id, zone_id, object_count, entry_time, exit_time,
		lidar_est, throughput_est, final_est, actual_pass_time, congestion
		FROM passages WHERE 1=1`
	var args []any
	if !from.IsZero() {
		query += " AND ts_unix >= ?"
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += " AND ts_unix < ?"
		args = append(args, to.Unix())
	}
	query += " ORDER BY ts_unix, passage_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var out []passage.Record
	for rows.Next() {
		var (
			r           passage.Record
			ts          int64
			entry, exit sql.NullInt64
			congestion  string
		)
		if err := rows.Scan(&ts, &r.ObjectID, &r.ZoneID, &r.ObjectCount, &entry, &exit,
			&r.Estimates[passage.AlgLidar], &r.Estimates[passage.AlgThroughput], &r.Estimates[passage.AlgFinal],
			&r.ActualPassTime, &congestion); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).In(db.location)
		r.EntryTime = clockFrom(entry)
		r.ExitTime = clockFrom(exit)
		r.Congestion = passage.CongestionLevel(congestion)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountPassages returns the number of stored passages.
func (db *DB) CountPassages(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&n)
	return n, err
}

func nullClock(c passage.ClockTime) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(c.Seconds), Valid: c.Valid}
}

func clockFrom(n sql.NullInt64) passage.ClockTime {
	if !n.Valid {
		return passage.ClockTime{}
	}
	return passage.ClockTime{Seconds: int(n.Int64), Valid: true}
}
