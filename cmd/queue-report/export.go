package main

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/fsutil"
	"github.com/banshee-data/queue.report/internal/ingest"
	"github.com/banshee-data/queue.report/internal/passage"
)

var exportStages = []enhance.Stage{
	enhance.StageOriginal,
	enhance.StageTimeOfDay,
	enhance.StageQueueGrowth,
	enhance.StageEnhanced,
}

func exportHeader() []string {
	h := []string{"timestamp", "object_id", "zone_id", "object_count", "congestion",
		"actual_pass_time", "hour", "queue_state"}
	for _, stage := range exportStages {
		for _, alg := range passage.Algorithms {
			h = append(h, alg.String()+"_"+string(stage))
		}
	}
	return h
}

// exportCSV writes one row per annotated record with every prediction
// stage side by side.
func exportCSV(fsys fsutil.FileSystem, path string, annotated []enhance.Annotated) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader()); err != nil {
		return err
	}
	for _, a := range annotated {
		row := []string{
			a.Timestamp.Format(ingest.TimestampLayout),
			strconv.Itoa(a.ObjectID),
			strconv.Itoa(a.ZoneID),
			strconv.Itoa(a.ObjectCount),
			string(a.Congestion),
			strconv.Itoa(a.ActualPassTime),
			strconv.Itoa(a.Hour()),
			string(a.QueueState),
		}
		for _, stage := range exportStages {
			for _, alg := range passage.Algorithms {
				row = append(row, strconv.FormatFloat(a.Prediction(alg, stage), 'f', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0o644)
}
