package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/queue.report/internal/analysis"
	"github.com/banshee-data/queue.report/internal/api"
	"github.com/banshee-data/queue.report/internal/config"
	"github.com/banshee-data/queue.report/internal/db"
	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/fsutil"
	"github.com/banshee-data/queue.report/internal/ingest"
	"github.com/banshee-data/queue.report/internal/monitoring"
	"github.com/banshee-data/queue.report/internal/outlier"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/report"
	"github.com/banshee-data/queue.report/internal/timeutil"
	"github.com/banshee-data/queue.report/internal/version"
)

type app struct {
	stdout io.Writer
	fsys   fsutil.FileSystem
	clock  timeutil.Clock
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "import":
		return a.runImport(ctx, args)
	case "filter":
		return a.runFilter(ctx, args)
	case "train":
		return a.runTrain(ctx, args)
	case "apply":
		return a.runApply(ctx, args)
	case "analyze":
		return a.runAnalyze(ctx, args)
	case "chart":
		return a.runChart(ctx, args)
	case "serve":
		return a.runServe(ctx, args)
	case "version":
		fmt.Fprintln(a.stdout, version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

type commonFlags struct {
	configPath string
	logsDir    string
	dbPath     string
	from, to   string
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "analysis config JSON")
	fs.StringVar(&c.logsDir, "logs", "", "directory of passage log CSV files")
	fs.StringVar(&c.dbPath, "db", "", "SQLite database path")
	fs.StringVar(&c.from, "from", "", "first day to include (YYYYMMDD)")
	fs.StringVar(&c.to, "to", "", "last day to include (YYYYMMDD)")
	fs.BoolVar(&c.verbose, "verbose", false, "log per-group detail")
}

// session is the loaded config plus the optional database of one command.
type session struct {
	cfg   *config.AnalysisConfig
	loc   *time.Location
	store *db.DB
	flags *commonFlags
}

func (a *app) open(c *commonFlags) (*session, error) {
	monitoring.SetVerbose(c.verbose)

	cfg := config.EmptyAnalysisConfig()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(c.configPath); err != nil {
			return nil, err
		}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, loc: loc, flags: c}
	if c.dbPath != "" {
		if s.store, err = db.Open(c.dbPath); err != nil {
			return nil, err
		}
		s.store.SetLocation(loc)
		s.store.SetClock(a.clock)
	}
	return s, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// records loads passages from the log directory, or from the database
// when no directory was given.
func (s *session) records(ctx context.Context, fsys fsutil.FileSystem) ([]passage.Record, error) {
	c := s.flags
	if c.logsDir != "" {
		records, _, err := ingest.LoadDir(ctx, fsys, c.logsDir, ingest.Options{
			From:     c.from,
			To:       c.to,
			Location: s.loc,
		})
		return records, err
	}
	if s.store == nil {
		return nil, errors.New("one of -logs or -db is required")
	}

	var from, to time.Time
	var err error
	if c.from != "" {
		if from, err = timeutil.ParseDay(c.from, s.loc); err != nil {
			return nil, err
		}
	}
	if c.to != "" {
		if to, err = timeutil.ParseDay(c.to, s.loc); err != nil {
			return nil, err
		}
		to = to.AddDate(0, 0, 1)
	}
	return s.store.Passages(ctx, from, to)
}

func (s *session) filter(records []passage.Record) outlier.Result {
	res := outlier.Filter(records, s.cfg.OutlierConfig())
	res.Stats.LogSummary()
	return res
}

func (s *session) source() string {
	if s.flags.logsDir != "" {
		return s.flags.logsDir
	}
	return s.flags.dbPath
}

func (a *app) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = a.stdout.Write(data)
		return err
	}
	return fsutil.WriteFileAtomic(a.fsys, path, data, 0o644)
}

func (a *app) runImport(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.logsDir == "" || c.dbPath == "" {
		return errors.New("import requires -logs and -db")
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	start := a.clock.Now()
	records, sum, err := ingest.LoadDir(ctx, a.fsys, c.logsDir, ingest.Options{From: c.from, To: c.to, Location: s.loc})
	if err != nil {
		return err
	}
	inserted, err := s.store.InsertPassages(ctx, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d of %d records from %d files (%d malformed rows) in %s\n",
		inserted, len(records), len(sum.Files), sum.Malformed, a.clock.Since(start).Round(time.Millisecond))
	return nil
}

func (a *app) runFilter(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	c.register(fs)
	out := fs.String("out", "", "write filter statistics JSON here (default stdout)")
	record := fs.Bool("record", false, "store the run in -db")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.records(ctx, a.fsys)
	if err != nil {
		return err
	}
	res := s.filter(records)

	if *record {
		if s.store == nil {
			return errors.New("-record requires -db")
		}
		id, err := s.store.RecordFilterRun(ctx, s.source(), res.Stats)
		if err != nil {
			return err
		}
		monitoring.Logf("filter run %s recorded", id)
	}
	return a.writeJSON(*out, res.Stats)
}

type trainSummary struct {
	RunID          string  `json:"run_id"`
	Created        string  `json:"created"`
	Records        int     `json:"records"`
	Filtered       int     `json:"filtered_records"`
	RemovalRatePct float64 `json:"removal_rate_pct"`
	HoursWithData  int     `json:"hours_with_data"`
	GrowthWindows  int     `json:"growth_windows"`
	ModelDir       string  `json:"model_dir"`
}

func (a *app) runTrain(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	c.register(fs)
	models := fs.String("models", "models", "directory to write model artifacts to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.records(ctx, a.fsys)
	if err != nil {
		return err
	}
	res := s.filter(records)

	tod, err := enhance.FitTimeOfDay(res.Records, s.cfg.TimeOfDayOptions())
	if err != nil {
		return err
	}
	growth, err := enhance.FitQueueGrowth(res.Records, s.cfg.GrowthOptions())
	if err != nil {
		return err
	}
	if err := enhance.SaveModels(a.fsys, *models, tod, growth); err != nil {
		return err
	}

	if s.store != nil {
		for kind, m := range map[string]json.Marshaler{
			enhance.TimeOfDaySchema:   tod,
			enhance.QueueGrowthSchema: growth,
		} {
			payload, err := m.MarshalJSON()
			if err != nil {
				return err
			}
			if _, err := s.store.SaveModelArtifact(ctx, kind, payload); err != nil {
				return err
			}
		}
	}

	return a.writeJSON("", trainSummary{
		RunID:          uuid.NewString(),
		Created:        a.clock.Now().UTC().Format(time.RFC3339),
		Records:        res.Stats.TotalRecords,
		Filtered:       res.Stats.FilteredRecords,
		RemovalRatePct: res.Stats.RemovalRatePct,
		HoursWithData:  tod.HoursWithData(),
		GrowthWindows:  growth.TotalWindows,
		ModelDir:       *models,
	})
}

// loadModels reads the artifacts from dir, or the latest ones stored in
// the database when dir is empty.
func (a *app) loadModels(ctx context.Context, s *session, dir string) (*enhance.TimeOfDayModel, *enhance.QueueGrowthModel, error) {
	if dir != "" {
		return enhance.LoadModels(a.fsys, dir)
	}
	if s.store == nil {
		return nil, nil, errors.New("one of -models or -db is required")
	}

	tod := new(enhance.TimeOfDayModel)
	growth := new(enhance.QueueGrowthModel)
	for kind, m := range map[string]json.Unmarshaler{
		enhance.TimeOfDaySchema:   tod,
		enhance.QueueGrowthSchema: growth,
	} {
		art, err := s.store.LatestModelArtifact(ctx, kind)
		if err != nil {
			return nil, nil, err
		}
		if err := m.UnmarshalJSON(art.Payload); err != nil {
			return nil, nil, err
		}
	}
	return tod, growth, nil
}

func (a *app) runApply(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	c.register(fs)
	models := fs.String("models", "", "model directory (default: latest artifacts in -db)")
	out := fs.String("out", "", "write the comparison JSON here (default stdout)")
	export := fs.String("export", "", "write enhanced predictions as CSV here")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	tod, growth, err := a.loadModels(ctx, s, *models)
	if err != nil {
		return err
	}
	records, err := s.records(ctx, a.fsys)
	if err != nil {
		return err
	}
	res := s.filter(records)

	annotated, err := enhance.ApplyAll(res.Records, tod, growth, s.cfg.GetConservativeBias())
	if err != nil {
		return err
	}

	opts := analysis.Options{BucketWidth: s.cfg.GetQueueBucketWidth()}
	cmp := analysis.Compare(
		analysis.Analyze(enhance.Records(annotated, enhance.StageOriginal), opts),
		analysis.Analyze(enhance.Records(annotated, enhance.StageEnhanced), opts),
	)
	for _, alg := range passage.Algorithms {
		imp := cmp.Improvements[alg]
		monitoring.Logf("%-10s MAE %.1f -> %.1f (%+.1f%%)", alg, imp.OriginalMAE, imp.EnhancedMAE, imp.ImprovementPct)
	}

	if *export != "" {
		if err := exportCSV(a.fsys, *export, annotated); err != nil {
			return err
		}
	}
	return a.writeJSON(*out, cmp)
}

func (a *app) runAnalyze(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	c.register(fs)
	out := fs.String("out", "", "write the summary JSON here (default stdout)")
	raw := fs.Bool("raw", false, "skip outlier filtering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.records(ctx, a.fsys)
	if err != nil {
		return err
	}
	if !*raw {
		records = s.filter(records).Records
	}
	return a.writeJSON(*out, analysis.Analyze(records, analysis.Options{BucketWidth: s.cfg.GetQueueBucketWidth()}))
}

func (a *app) runChart(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	c.register(fs)
	models := fs.String("models", "", "model directory to chart (optional)")
	out := fs.String("out", "report.html", "HTML dashboard path")
	png := fs.String("png", "", "also plot hourly factors to this image path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.records(ctx, a.fsys)
	if err != nil {
		return err
	}
	res := s.filter(records)

	d := report.Dashboard{
		Summary: analysis.Analyze(res.Records, analysis.Options{BucketWidth: s.cfg.GetQueueBucketWidth()}),
		Filter:  &res.Stats,
		Unit:    s.cfg.GetWaitUnits(),
	}
	if *models != "" {
		if d.TimeOfDay, d.Growth, err = enhance.LoadModels(a.fsys, *models); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(a.fsys, *out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", filepath.Clean(*out))

	if *png != "" {
		if d.TimeOfDay == nil {
			return errors.New("-png requires -models")
		}
		if err := report.PlotHourlyFactors(*png, d.TimeOfDay); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "wrote %s\n", filepath.Clean(*png))
	}
	return nil
}

func (a *app) runServe(ctx context.Context, args []string) error {
	var c commonFlags
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	c.register(fs)
	listen := fs.String("listen", "localhost:8090", "address to serve the report API on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.dbPath == "" {
		return errors.New("serve requires -db")
	}

	s, err := a.open(&c)
	if err != nil {
		return err
	}
	defer s.Close()

	srv, err := api.NewServer(s.store, s.cfg)
	if err != nil {
		return err
	}
	mux := srv.ServeMux()
	if err := s.store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving on http://%s", *listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
