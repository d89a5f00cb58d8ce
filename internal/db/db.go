// Package db persists imported passages, outlier filter runs and trained
// model artifacts in SQLite. The schema is owned by the embedded
// migrations and brought up to date on Open.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/queue.report/internal/timeutil"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(ON)",
}

type DB struct {
	*sql.DB

	path     string
	clock    timeutil.Clock
	location *time.Location
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}, location: time.Local}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// SetClock replaces the clock used to stamp filter runs and artifacts.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// SetLocation sets the zone passage timestamps are returned in. Stored
// timestamps are absolute, so this only affects presentation and the
// hour-of-day the enhancers see.
func (db *DB) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	db.location = loc
}
