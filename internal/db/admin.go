package db

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/queue.report/internal/httputil"
	"github.com/banshee-data/queue.report/internal/monitoring"
)

// adminTables are the tables reported by /debug/db-stats.
var adminTables = []string{"passages", "filter_runs", "model_artifacts"}

// TableStats is the row count of one table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// DatabaseStats is the /debug/db-stats payload.
type DatabaseStats struct {
	Path    string       `json:"path"`
	Version uint         `json:"schema_version"`
	Dirty   bool         `json:"dirty"`
	Tables  []TableStats `json:"tables"`
}

// Stats counts the rows of every table and reports the schema version.
func (db *DB) Stats(ctx context.Context) (DatabaseStats, error) {
	st := DatabaseStats{Path: db.path}
	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return st, err
	}
	st.Version, st.Dirty = v, dirty
	for _, name := range adminTables {
		var n int64
		// names come from adminTables, never from the request
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
			return st, fmt.Errorf("count %s: %w", name, err)
		}
		st.Tables = append(st.Tables, TableStats{Name: name, Rows: n})
	}
	return st, nil
}

// AttachAdminRoutes mounts the debug pages under /debug/: a live SQL
// console over the store, row counts, and a gzipped backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Queue report DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Row counts and schema version", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := db.Stats(r.Context())
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to collect stats: %v", err))
			return
		}
		httputil.WriteJSONOK(w, st)
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("queue-backup-%d.db", db.clock.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		monitoring.Logf("backup: write response: %v", err)
	}
}
