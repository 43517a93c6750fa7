package workflow

import (
	"context"
	"log/slog"
	"os"

	"cd2md/internal/cddb"
	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/extract"
	"cd2md/internal/logging"
	"cd2md/internal/pipeline"
	"cd2md/internal/progress"
	"cd2md/internal/services"
)

// transfer prepares the MD, runs the pipeline under the status line and
// applies the LP group afterwards.
func (s *Session) transfer(ctx context.Context, logger *slog.Logger, d disc.Disc, titles cddb.Titles, plan mdPlan, rec *recorder) (pipeline.Summary, error) {
	tempDir, err := os.MkdirTemp(s.cfg.Paths.TempDir, "run-")
	if err != nil {
		return pipeline.Summary{}, services.Wrap(services.ErrConfiguration, "workflow", "temp", "Failed to create temp directory", err)
	}
	if !s.cfg.Diagnostics.KeepTemp {
		defer os.RemoveAll(tempDir)
	}

	if !plan.appendTracks {
		if err := s.md.Erase(ctx, s.toolOut); err != nil {
			return pipeline.Summary{}, err
		}
		if err := s.md.SetTitle(ctx, s.discTitle(plan, titles), s.toolOut); err != nil {
			return pipeline.Summary{}, err
		}
		logger.Info("MiniDisc erased",
			logging.String(logging.FieldEventType, "md_erased"),
			logging.String("disc_title", titles.Disc),
		)
	}

	if err := s.drive.Lock(); err != nil {
		logging.WarnWithContext(logger, "tray lock failed", "tray_lock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "disc can be ejected during the rip"),
		)
	}
	releaseDrive := func() {
		if err := s.drive.Unlock(); err != nil {
			logger.Debug("tray unlock failed", logging.Error(err))
		}
		if !s.cfg.Drive.EjectWhenDone {
			return
		}
		if err := s.drive.Eject(); err != nil {
			logging.WarnWithContext(logger, "eject failed", "eject_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "disc stays in the drive"),
			)
		}
	}

	rip := progress.NewStream()
	encode := progress.NewStream()
	send := progress.NewStream()
	sample := &progress.Sample{}

	opts := []pipeline.ContextOption{
		pipeline.WithLogger(s.logger),
		pipeline.WithStreams(rip, encode, send, sample),
		pipeline.WithObserver(rec.observe),
		pipeline.WithAfterExtract(releaseDrive),
	}
	if plan.modes.External != config.ModeNone {
		opts = append(opts, pipeline.WithEncoder(s.encoder))
	}
	pc, err := pipeline.NewContext(pipeline.Options{
		TransferMode: plan.modes.Transfer,
		ExternalMode: plan.modes.External,
		TempDir:      tempDir,
		KeepTemp:     s.cfg.Diagnostics.KeepTemp,
	}, extract.New(s.drive, s.logger), s.md, opts...)
	if err != nil {
		releaseDrive()
		return pipeline.Summary{}, err
	}

	renderer := progress.NewRenderer(s.status, plan.modes.External != config.ModeNone)
	agg := progress.NewAggregator(rip, encode, send, sample, s.cfg.PollInterval(), renderer.Render)
	aggCtx, stopAgg := context.WithCancel(ctx)
	aggDone := make(chan struct{})
	go func() {
		defer close(aggDone)
		agg.Run(aggCtx)
	}()

	summary := pipeline.Run(ctx, pc, d.Tracks, titles)
	stopAgg()
	<-aggDone
	renderer.Finish()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if last, title, ok := s.groupTarget(plan, titles, summary.Transferred); ok {
		if err := s.md.Group(ctx, last, title, s.toolOut); err != nil {
			logging.WarnWithContext(logger, "group creation failed", "group_failed",
				logging.Error(err),
				logging.String("group", title),
				logging.String(logging.FieldImpact, "tracks are on the MiniDisc without a group"),
			)
		} else {
			logger.Info("group created",
				logging.String(logging.FieldEventType, "md_grouped"),
				logging.String("group", title),
				logging.Int("last_track", last),
			)
		}
	}
	return summary, nil
}
