package workflow

import (
	"context"
	"log/slog"
	"sync"

	"cd2md/internal/cddb"
	"cd2md/internal/disc"
	"cd2md/internal/history"
	"cd2md/internal/logging"
	"cd2md/internal/pipeline"
	"cd2md/internal/progress"
	"cd2md/internal/services"
)

// recorder mirrors pipeline outcomes into the history store. A nil store
// turns every method into a no-op.
type recorder struct {
	store  *history.Store
	runID  string
	disc   disc.Disc
	titles cddb.Titles
	logger *slog.Logger

	mu      sync.Mutex
	active  bool
	records map[int]*history.TrackRecord
}

func newRecorder(store *history.Store, runID string, d disc.Disc, titles cddb.Titles, logger *slog.Logger) *recorder {
	return &recorder{
		store:   store,
		runID:   runID,
		disc:    d,
		titles:  titles,
		logger:  logger,
		records: make(map[int]*history.TrackRecord, len(d.Tracks)),
	}
}

func (r *recorder) begin(ctx context.Context, plan mdPlan) error {
	if r.store == nil {
		return nil
	}
	_, err := r.store.BeginRun(ctx, history.Run{
		ID:           r.runID,
		DiscID:       r.disc.HexID(),
		DiscTitle:    r.titles.Disc,
		TrackCount:   len(r.disc.Tracks),
		TransferMode: plan.modes.Transfer,
		ExternalMode: plan.modes.External,
		Append:       plan.appendTracks,
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.active = true
	r.mu.Unlock()
	return nil
}

// observe is the pipeline observer. It runs on the stage goroutines.
func (r *recorder) observe(o pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	rec, ok := r.records[o.Ordinal]
	if !ok {
		rec = &history.TrackRecord{RunID: r.runID, Ordinal: o.Ordinal, Title: o.Title}
		for _, t := range r.disc.Tracks {
			if t.Ordinal == o.Ordinal {
				rec.Seconds = int(t.DurationSeconds())
			}
		}
		r.records[o.Ordinal] = rec
	}
	if o.Err != nil {
		rec.FailedStage = o.Stage.String()
		rec.ErrorMessage = o.Err.Error()
	} else {
		switch o.Stage {
		case progress.StageRip:
			rec.Extracted = true
		case progress.StageEncode:
			rec.Encoded = true
		case progress.StageTransfer:
			rec.Transferred = true
		}
	}
	if err := r.store.RecordTrack(context.Background(), *rec); err != nil {
		r.logger.Debug("track history write failed", logging.Error(err), logging.Int(logging.FieldTrack, o.Ordinal))
	}
}

func (r *recorder) finish(ctx context.Context, summary pipeline.Summary, runErr error) {
	r.mu.Lock()
	active := r.active
	r.active = false
	r.mu.Unlock()
	if !active {
		return
	}

	status := history.StatusCompleted
	message := ""
	switch {
	case runErr != nil:
		status = services.FailureStatus(runErr)
		message = runErr.Error()
	case summary.Failed():
		status = history.StatusPartial
		if summary.Err != nil {
			message = summary.Err.Error()
		}
	}
	counts := history.Counts{
		Extracted:    summary.Extracted,
		Encoded:      summary.Encoded,
		Transferred:  summary.Transferred,
		ReadFailures: summary.ReadFailures,
		ToolFailures: summary.SubprocessFailures,
	}
	// The run context may already be cancelled; the final status must land.
	if err := r.store.FinishRun(context.WithoutCancel(ctx), r.runID, status, counts, message); err != nil {
		r.logger.Debug("run history finish failed", logging.Error(err))
	}
}
