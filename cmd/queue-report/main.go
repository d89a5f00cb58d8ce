package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/queue.report/internal/fsutil"
	"github.com/banshee-data/queue.report/internal/timeutil"
	"github.com/banshee-data/queue.report/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print build information and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, fsys: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}}
	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `queue-report - wait-time estimate filtering, enhancement and analysis

Usage: queue-report [-version] <command> [options]

Commands:
  import     Load passage logs into a SQLite database
  filter     Run the two-stage outlier filter and report what it removed
  train      Filter, then fit the time-of-day and queue-growth models
  apply      Enhance predictions with trained models and compare accuracy
  analyze    Report prediction accuracy by zone, congestion, bucket and date
  chart      Render an HTML dashboard and optional PNG plot
  serve      Serve stored runs, summaries, models and charts over HTTP
  version    Show build information
  help       Show this help message

Common Flags:
  -config <file>   Analysis config JSON (default: built-in defaults)
  -logs <dir>      Directory of passingObject_YYYYMMDD.csv files
  -db <file>       SQLite database; used as the input when -logs is empty
  -from, -to       Inclusive YYYYMMDD date range
  -verbose         Log per-group and per-window detail

Run 'queue-report <command> -h' for command flags.`)
}
