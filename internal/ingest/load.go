package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/queue.report/internal/fsutil"
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/timeutil"
)

// ErrNoFiles is returned when no log file matches the directory and date
// range.
var ErrNoFiles = errors.New("ingest: no passage log files found")

const (
	filePrefix = "passingObject_"
	fileSuffix = ".csv"

	// DefaultConcurrency bounds the number of files parsed at once.
	DefaultConcurrency = 4
)

// Options controls LoadDir.
type Options struct {
	// From and To restrict the files to an inclusive YYYYMMDD range.
	// Empty means unbounded.
	From, To string
	// Location is the timezone of the logged timestamps; nil means local.
	Location *time.Location
	// Concurrency is the maximum number of files parsed in parallel.
	Concurrency int
}

// Summary reports a LoadDir run.
type Summary struct {
	Files     []FileStats `json:"files"`
	Records   int         `json:"records"`
	Malformed int         `json:"malformed"`
}

// FileDate extracts YYYYMMDD from a log file name. ok is false when the
// name does not follow the passingObject_YYYYMMDD.csv pattern.
func FileDate(name string) (date string, ok bool) {
	base := path.Base(filepath.ToSlash(name))
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	date = strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	if _, err := timeutil.ParseDay(date, time.UTC); err != nil {
		return "", false
	}
	return date, true
}

// ListFiles returns the log files in dir within the date range, in date
// order.
func ListFiles(fsys fsutil.FileSystem, dir, from, to string) ([]string, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := timeutil.ParseDay(d, time.UTC); err != nil {
			return nil, err
		}
	}

	matches, err := fsys.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, name := range matches {
		date, ok := FileDate(name)
		if !ok {
			continue
		}
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// LoadDir parses every matching log in dir. Files are parsed concurrently
// but the records are concatenated in file-name order, so the result does
// not depend on scheduling.
func LoadDir(ctx context.Context, fsys fsutil.FileSystem, dir string, opts Options) ([]passage.Record, Summary, error) {
	files, err := ListFiles(fsys, dir, opts.From, opts.To)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(files) == 0 {
		return nil, Summary{}, fmt.Errorf("%w in %s (from %q, to %q)", ErrNoFiles, dir, opts.From, opts.To)
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	results := make([][]passage.Record, len(files))
	stats := make([]FileStats, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, st, err := loadFile(fsys, name, opts.Location)
			if err != nil {
				return err
			}
			results[i] = recs
			stats[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	var sum Summary
	total := 0
	for _, recs := range results {
		total += len(recs)
	}
	all := make([]passage.Record, 0, total)
	for i, recs := range results {
		all = append(all, recs...)
		sum.Files = append(sum.Files, stats[i])
		sum.Malformed += stats[i].Malformed
		monitoring.Debugf("ingest: %s (%s): %d records, %d malformed",
			stats[i].Name, stats[i].Format, stats[i].Records, stats[i].Malformed)
	}
	sum.Records = len(all)
	monitoring.Logf("ingest: loaded %d records from %d files (%d malformed rows skipped)",
		sum.Records, len(files), sum.Malformed)
	return all, sum, nil
}

func loadFile(fsys fsutil.FileSystem, name string, loc *time.Location) ([]passage.Record, FileStats, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, FileStats{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	recs, st, err := Parse(f, loc)
	if err != nil {
		return nil, st, fmt.Errorf("parse %s: %w", name, err)
	}
	st.Name = path.Base(filepath.ToSlash(name))
	return recs, st, nil
}
