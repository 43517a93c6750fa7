package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cd2md/internal/cddb"
	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/history"
	"cd2md/internal/logging"
	"cd2md/internal/netmd"
	"cd2md/internal/pipeline"
	"cd2md/internal/services"
)

// MiniDisc is the transfer tool surface a session uses.
type MiniDisc interface {
	Info(ctx context.Context) (netmd.DeviceInfo, error)
	Erase(ctx context.Context, sink io.Writer) error
	SetTitle(ctx context.Context, title string, sink io.Writer) error
	Send(ctx context.Context, file, title, mode string, sink io.Writer) error
	Group(ctx context.Context, lastTrack int, title string, sink io.Writer) error
}

// EraseDecision is the answer to a non-blank MiniDisc.
type EraseDecision int

const (
	DecisionAppend EraseDecision = iota
	DecisionErase
	DecisionAbort
)

func (d EraseDecision) String() string {
	switch d {
	case DecisionAppend:
		return "append"
	case DecisionErase:
		return "erase"
	default:
		return "abort"
	}
}

// Decider chooses what to do with a MiniDisc that already holds tracks.
type Decider func(md netmd.DiscInfo) (EraseDecision, error)

// Confirm asks a yes/no question.
type Confirm func(question string) (bool, error)

// Option configures a Session.
type Option func(*Session)

// WithEncoder sets the external ATRAC3 encoder.
func WithEncoder(enc pipeline.Encoder) Option {
	return func(s *Session) { s.encoder = enc }
}

// WithLookup enables title lookup.
func WithLookup(lookup cddb.Lookup) Option {
	return func(s *Session) { s.lookup = lookup }
}

// WithHistory records runs in store.
func WithHistory(store *history.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithDecider sets the callback used by the "ask" erase policy.
func WithDecider(decide Decider) Option {
	return func(s *Session) { s.decide = decide }
}

// WithConfirm sets the callback used when the lookup finds nothing.
func WithConfirm(confirm Confirm) Option {
	return func(s *Session) { s.confirm = confirm }
}

// WithStatusOutput sets where the progress line is drawn.
func WithStatusOutput(w io.Writer) Option {
	return func(s *Session) { s.status = w }
}

// WithToolOutput sets where setup commands (erase, title, group) write.
func WithToolOutput(w io.Writer) Option {
	return func(s *Session) { s.toolOut = w }
}

// WithWaitForMedia blocks until a disc is inserted before reading the TOC.
func WithWaitForMedia(wait bool) Option {
	return func(s *Session) { s.waitForMedia = wait }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session runs one disc through the pipeline.
type Session struct {
	cfg    *config.Config
	drive  disc.Reader
	md     MiniDisc
	logger *slog.Logger

	encoder      pipeline.Encoder
	lookup       cddb.Lookup
	store        *history.Store
	decide       Decider
	confirm      Confirm
	status       io.Writer
	toolOut      io.Writer
	waitForMedia bool
}

// Result describes a finished session.
type Result struct {
	RunID   string
	Disc    disc.Disc
	Titles  cddb.Titles
	Modes   netmd.Modes
	Append  bool
	Summary pipeline.Summary
	Elapsed time.Duration
}

// New builds a Session for cfg.
func New(cfg *config.Config, drive disc.Reader, md MiniDisc, opts ...Option) (*Session, error) {
	if cfg == nil || drive == nil || md == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "init", "config, drive and MiniDisc client are required", nil)
	}
	s := &Session{
		cfg:     cfg,
		drive:   drive,
		md:      md,
		logger:  logging.NewNop(),
		status:  os.Stdout,
		toolOut: io.Discard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.NewComponentLogger(s.logger, "workflow")
	return s, nil
}

// Run executes the session. Fatal problems are returned as errors; per-track
// failures are reported in Result.Summary.
func (s *Session) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	result := Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, s.logger)

	if err := s.cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "workflow", "prepare", "Failed to create working directories", err)
	}
	lock := flock.New(s.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "workflow", "lock", "Failed to acquire run lock", err)
	}
	if !locked {
		return result, services.Wrap(services.ErrValidation, "workflow", "lock",
			fmt.Sprintf("another cd2md run is using the drive (lock %s)", s.cfg.LockPath()), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("run lock release failed", logging.Error(err))
		}
	}()

	if s.waitForMedia {
		timeout := time.Duration(s.cfg.Drive.WaitTimeout) * time.Second
		logger.Info("waiting for disc", logging.String("device", s.cfg.Drive.Device))
		if err := disc.WaitForMedia(ctx, s.cfg.Drive.Device, timeout, logger); err != nil {
			return result, services.Wrap(services.ErrDevice, "workflow", "wait", "No disc inserted", err)
		}
	}

	d, err := s.drive.Open(ctx)
	if err != nil {
		return result, err
	}
	defer s.drive.Close()
	result.Disc = d
	logger.Info("disc opened",
		logging.String(logging.FieldEventType, "disc_opened"),
		logging.String(logging.FieldDiscID, d.HexID()),
		logging.Int("tracks", len(d.Tracks)),
		logging.Uint64("seconds", d.TotalSeconds()),
	)

	plan, err := s.prepare(ctx, logger, d)
	if err != nil {
		return result, err
	}
	result.Modes = plan.modes
	result.Append = plan.appendTracks

	titles, err := s.resolveTitles(ctx, logger, d)
	if err != nil {
		return result, err
	}
	result.Titles = titles

	rec := newRecorder(s.store, result.RunID, d, titles, logger)
	if err := rec.begin(ctx, plan); err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will not appear in cd2md history"),
		)
	}

	summary, err := s.transfer(ctx, logger, d, titles, plan, rec)
	result.Summary = summary
	result.Elapsed = time.Since(started)
	rec.finish(ctx, summary, err)
	if err != nil {
		logging.ErrorWithContext(logger, "run aborted during transfer", "run_failed",
			logging.Error(err),
			logging.Int("transferred", summary.Transferred),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "the MiniDisc may hold a partial album"),
		)
		return result, err
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("transferred", summary.Transferred),
		logging.Int("tracks", len(d.Tracks)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

type mdPlan struct {
	info         netmd.DeviceInfo
	modes        netmd.Modes
	appendTracks bool
}

// prepare inspects the MiniDisc, resolves the encoding plan and erase policy,
// and checks that the disc fits. Nothing is written to the MD here.
func (s *Session) prepare(ctx context.Context, logger *slog.Logger, d disc.Disc) (mdPlan, error) {
	var plan mdPlan
	info, err := s.md.Info(ctx)
	if err != nil {
		return plan, err
	}
	plan.info = info

	plan.modes = netmd.ResolveModes(info, s.cfg.Encoding.TransferMode, s.cfg.Encoding.ExternalMode)
	if plan.modes.Fallback {
		logging.WarnWithContext(logger, "device cannot encode LP on the fly", "lp_fallback",
			logging.String("device", info.Name),
			logging.String("mode", plan.modes.External),
			logging.String(logging.FieldImpact, "tracks are encoded with atracdenc before transfer"),
			logging.String(logging.FieldErrorHint, "install atracdenc if it is missing"),
		)
	}
	if plan.modes.External != config.ModeNone && s.encoder == nil {
		return plan, services.Wrap(services.ErrConfiguration, "workflow", "encode",
			fmt.Sprintf("external %s encoding requested but no encoder is configured", plan.modes.External), nil)
	}

	plan.appendTracks = s.cfg.Transfer.Append
	if !plan.appendTracks && !info.Disc.Blank() {
		decision, err := s.erasePolicy(info.Disc)
		if err != nil {
			return plan, err
		}
		logger.Info("MiniDisc not blank",
			logging.String(logging.FieldEventType, "md_not_blank"),
			logging.Int("md_tracks", info.Disc.TrackCount),
			logging.String("decision", decision.String()),
		)
		switch decision {
		case DecisionAppend:
			plan.appendTracks = true
		case DecisionErase:
		default:
			return plan, services.Wrap(services.ErrAborted, "workflow", "erase", "MiniDisc left untouched", nil)
		}
	}

	need := int(d.TotalSeconds())
	if err := netmd.CheckCapacity(info.Disc, need, plan.modes.Effective(), plan.appendTracks); err != nil {
		return plan, err
	}
	return plan, nil
}

func (s *Session) erasePolicy(md netmd.DiscInfo) (EraseDecision, error) {
	switch s.cfg.Transfer.ErasePolicy {
	case config.ErasePolicyAppend:
		return DecisionAppend, nil
	case config.ErasePolicyErase:
		return DecisionErase, nil
	}
	if s.decide == nil {
		return DecisionAbort, services.Wrap(services.ErrValidation, "workflow", "erase",
			"MiniDisc holds tracks; use --append or set transfer.erase_policy", nil)
	}
	return s.decide(md)
}

func (s *Session) resolveTitles(ctx context.Context, logger *slog.Logger, d disc.Disc) (cddb.Titles, error) {
	blank := cddb.BlankTitles(len(d.Tracks))
	if s.lookup == nil {
		return blank, nil
	}
	titles, err := s.lookup.Resolve(ctx, d)
	if err == nil {
		logger.Info("titles resolved",
			logging.String(logging.FieldEventType, "titles_resolved"),
			logging.String("disc_title", titles.Disc),
		)
		return titles, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return blank, ctxErr
	}
	if !errors.Is(err, cddb.ErrLookupMiss) {
		logging.WarnWithContext(logger, "title lookup failed", "lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the CDDB server or use --no-cddb"),
		)
	}
	if s.confirm != nil {
		ok, cerr := s.confirm("No CDDB entry found. Continue without titles?")
		if cerr != nil {
			return blank, cerr
		}
		if !ok {
			return blank, services.Wrap(services.ErrAborted, "workflow", "lookup", "Run cancelled without titles", nil)
		}
	}
	logging.WarnWithContext(logger, "continuing without titles", "titles_blank",
		logging.String(logging.FieldDiscID, d.HexID()),
		logging.String(logging.FieldImpact, "tracks are transferred untitled"),
		logging.String(logging.FieldErrorHint, "rename the tracks on the MiniDisc afterwards"),
	)
	return blank, nil
}

// discTitle returns the plain disc title to write. LP runs with grouping
// leave it blank since the group carries the name.
func (s *Session) discTitle(plan mdPlan, titles cddb.Titles) string {
	if plan.modes.LP() && s.cfg.Transfer.Group {
		return ""
	}
	return titles.Disc
}

// groupTarget returns the last track number to group and the group title,
// or ok=false when no group should be created.
func (s *Session) groupTarget(plan mdPlan, titles cddb.Titles, transferred int) (int, string, bool) {
	if !plan.modes.LP() || !s.cfg.Transfer.Group || transferred == 0 {
		return 0, "", false
	}
	title := netmd.MakeGroupTitle(titles.Disc)
	if strings.TrimSpace(title) == "" {
		return 0, "", false
	}
	last := transferred
	if plan.appendTracks {
		last += plan.info.Disc.TrackCount
	}
	return last, title, true
}
