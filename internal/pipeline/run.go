package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"cd2md/internal/cddb"
	"cd2md/internal/disc"
	"cd2md/internal/logging"
	"cd2md/internal/progress"
	"cd2md/internal/services"
)

// Summary reports what a run achieved.
type Summary struct {
	Extracted          int
	Encoded            int
	Transferred        int
	ReadFailures       int
	SubprocessFailures int
	// Err combines the non-fatal per-track errors and any cancellation.
	Err error
}

// Failed reports whether any track missed a stage.
func (s Summary) Failed() bool {
	return s.ReadFailures > 0 || s.SubprocessFailures > 0
}

type counters struct {
	extracted, encoded, transferred atomic.Int32
	readFailures, toolFailures      atomic.Int32
}

// Run extracts every track on the calling goroutine while the encode and
// transfer stages consume their queues. It returns after both stages exit.
func Run(ctx context.Context, pc *Context, tracks []disc.Track, titles cddb.Titles) Summary {
	var c counters
	pc.Sample.SetTotal(len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pc.encodeStage(gctx, &c) })
	g.Go(func() error { return pc.transferStage(gctx, &c) })

	extractErr := pc.extractStage(gctx, tracks, titles, &c)
	pc.ToEncode.MarkCompleted()
	if pc.AfterExtract != nil {
		pc.AfterExtract()
	}
	waitErr := g.Wait()

	summary := Summary{
		Extracted:          int(c.extracted.Load()),
		Encoded:            int(c.encoded.Load()),
		Transferred:        int(c.transferred.Load()),
		ReadFailures:       int(c.readFailures.Load()),
		SubprocessFailures: int(c.toolFailures.Load()),
	}
	summary.Err = multierr.Combine(append(pc.Failures(), extractErr, waitErr)...)

	pc.Logger.Info("pipeline finished",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("tracks", len(tracks)),
		logging.Int("extracted", summary.Extracted),
		logging.Int("encoded", summary.Encoded),
		logging.Int("transferred", summary.Transferred),
		logging.Int("read_failures", summary.ReadFailures),
		logging.Int("tool_failures", summary.SubprocessFailures),
	)
	return summary
}

// TrackPath returns the temp file used for a track.
func (pc *Context) TrackPath(ordinal int) string {
	return filepath.Join(pc.Options.TempDir, fmt.Sprintf("track-%02d.wav", ordinal))
}

func (pc *Context) extractStage(ctx context.Context, tracks []disc.Track, titles cddb.Titles, c *counters) error {
	stageCtx := services.WithStage(ctx, progress.StageRip.String())
	for _, track := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}
		trackCtx := services.WithTrack(stageCtx, track.Ordinal)
		logger := logging.WithContext(trackCtx, pc.Logger)
		pc.Sample.SetTrack(progress.StageRip, track.Ordinal)

		path := pc.TrackPath(track.Ordinal)
		title := titles.Track(track.Ordinal)
		err := pc.Extractor.ExtractToFile(trackCtx, track, path, pc.RipStream)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if services.IsFatal(err) {
				return err
			}
			c.readFailures.Add(1)
			pc.recordFailure(err)
			logging.WarnWithContext(logger, "track extraction failed",
				"track_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "track skipped"),
				logging.String(logging.FieldErrorHint, "clean the disc or retry the rip"),
			)
			pc.notify(Outcome{Ordinal: track.Ordinal, Title: title, Stage: progress.StageRip, Err: err})
			continue
		}

		c.extracted.Add(1)
		logger.Info("track extracted",
			logging.String(logging.FieldEventType, "track_extracted"),
			logging.Uint64("sectors", track.SectorCount),
			logging.Uint64("bytes", track.ByteSize()),
		)
		pc.notify(Outcome{Ordinal: track.Ordinal, Title: title, Stage: progress.StageRip})
		if err := pc.Submit(Job{Title: title, PayloadPath: path, Ordinal: track.Ordinal}); err != nil {
			return err
		}
	}
	return nil
}

func (pc *Context) encodeStage(ctx context.Context, c *counters) error {
	defer pc.ToTransfer.MarkCompleted()
	stageCtx := services.WithStage(ctx, progress.StageEncode.String())
	external := pc.Options.ExternalEncoding()

	for {
		job, ok, err := pc.ToEncode.NextContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if external {
			pc.Sample.SetTrack(progress.StageEncode, job.Ordinal)
			trackCtx := services.WithTrack(stageCtx, job.Ordinal)
			logger := logging.WithContext(trackCtx, pc.Logger)
			if err := pc.Encoder.Encode(trackCtx, job.PayloadPath, pc.Options.ExternalMode, pc.EncodeStream); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.toolFailures.Add(1)
				pc.recordFailure(fmt.Errorf("track %d: %w", job.Ordinal, err))
				logging.WarnWithContext(logger, "external encoding failed",
					"track_encode_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "track sent without external encoding"),
					logging.String(logging.FieldErrorHint, "run atracdenc manually on the track to inspect the failure"),
				)
				pc.notify(Outcome{Ordinal: job.Ordinal, Title: job.Title, Stage: progress.StageEncode, Err: err})
			} else {
				c.encoded.Add(1)
				logger.Info("track encoded",
					logging.String(logging.FieldEventType, "track_encoded"),
					logging.String("mode", pc.Options.ExternalMode),
				)
				pc.notify(Outcome{Ordinal: job.Ordinal, Title: job.Title, Stage: progress.StageEncode})
			}
		}
		if err := push(pc.ToTransfer, job); err != nil {
			return err
		}
	}
}

func (pc *Context) transferStage(ctx context.Context, c *counters) error {
	stageCtx := services.WithStage(ctx, progress.StageTransfer.String())
	for {
		job, ok, err := pc.ToTransfer.NextContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		pc.Sample.SetTrack(progress.StageTransfer, job.Ordinal)
		trackCtx := services.WithTrack(stageCtx, job.Ordinal)
		logger := logging.WithContext(trackCtx, pc.Logger)

		sendErr := pc.Transferer.Send(trackCtx, job.PayloadPath, job.Title, pc.Options.TransferMode, pc.TransferStream)
		if sendErr != nil {
			// A tool killed by cancellation is not a track failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.toolFailures.Add(1)
			pc.recordFailure(fmt.Errorf("track %d: %w", job.Ordinal, sendErr))
			logging.WarnWithContext(logger, "track transfer failed",
				"track_transfer_failed",
				logging.Error(sendErr),
				logging.String(logging.FieldImpact, "track missing on MiniDisc"),
				logging.String(logging.FieldErrorHint, "check the NetMD connection and rerun with --append"),
			)
		} else {
			c.transferred.Add(1)
			logger.Info("track transferred",
				logging.String(logging.FieldEventType, "track_transferred"),
				logging.String("title", job.Title),
			)
		}
		pc.notify(Outcome{Ordinal: job.Ordinal, Title: job.Title, Stage: progress.StageTransfer, Err: sendErr})

		if !pc.Options.KeepTemp {
			if err := os.Remove(job.PayloadPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Debug("temp file cleanup failed", logging.Error(err))
			}
		}
	}
}
