package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/logging"
	"cd2md/internal/progress"
	"cd2md/internal/services"
	"cd2md/internal/stagequeue"
)

// ErrEmptyPayload is returned when a job without a payload path is pushed.
var ErrEmptyPayload = errors.New("job payload path is empty")

// Job is one track travelling through the stages.
type Job struct {
	Title       string
	PayloadPath string
	Ordinal     int
}

// TrackExtractor writes a track as a PCM WAV file.
type TrackExtractor interface {
	ExtractToFile(ctx context.Context, track disc.Track, path string, progress io.Writer) error
}

// Encoder converts a PCM WAV file in place.
type Encoder interface {
	Encode(ctx context.Context, wavPath, mode string, sink io.Writer) error
}

// Transferer delivers a payload file to the MiniDisc.
type Transferer interface {
	Send(ctx context.Context, file, title, mode string, sink io.Writer) error
}

// Options configures a pipeline run.
type Options struct {
	TransferMode string
	ExternalMode string
	TempDir      string
	KeepTemp     bool
}

// ExternalEncoding reports whether jobs pass through the encoder.
func (o Options) ExternalEncoding() bool {
	mode := strings.TrimSpace(o.ExternalMode)
	return mode != "" && mode != config.ModeNone
}

// Outcome reports the result of one stage for one track.
type Outcome struct {
	Ordinal int
	Title   string
	Stage   progress.Stage
	Err     error
}

// Observer receives stage outcomes. It is called from the stage goroutines
// and must be safe for concurrent use.
type Observer func(Outcome)

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithEncoder sets the external encoder.
func WithEncoder(enc Encoder) ContextOption {
	return func(pc *Context) {
		pc.Encoder = enc
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(pc *Context) {
		if logger != nil {
			pc.Logger = logging.NewComponentLogger(logger, "pipeline")
		}
	}
}

// WithObserver registers a stage outcome callback.
func WithObserver(obs Observer) ContextOption {
	return func(pc *Context) {
		pc.Observer = obs
	}
}

// WithAfterExtract registers fn to run once extraction has finished, while
// the encode and transfer stages may still be busy.
func WithAfterExtract(fn func()) ContextOption {
	return func(pc *Context) {
		pc.AfterExtract = fn
	}
}

// WithStreams replaces the progress streams and sample, so an aggregator
// created by the caller can read them.
func WithStreams(rip, encode, transfer *progress.Stream, sample *progress.Sample) ContextOption {
	return func(pc *Context) {
		pc.RipStream = rip
		pc.EncodeStream = encode
		pc.TransferStream = transfer
		pc.Sample = sample
	}
}

// Context holds everything the stages share during a run.
type Context struct {
	Options Options

	ToEncode   *stagequeue.Queue[Job]
	ToTransfer *stagequeue.Queue[Job]

	Sample         *progress.Sample
	RipStream      *progress.Stream
	EncodeStream   *progress.Stream
	TransferStream *progress.Stream

	Extractor  TrackExtractor
	Encoder    Encoder
	Transferer Transferer
	Observer   Observer
	Logger     *slog.Logger

	AfterExtract func()

	mu       sync.Mutex
	failures []error
}

// NewContext validates the collaborators and builds a Context with fresh
// queues and progress streams.
func NewContext(opts Options, extractor TrackExtractor, transferer Transferer, ctxOpts ...ContextOption) (*Context, error) {
	if extractor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "extractor is required", nil)
	}
	if transferer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "transferer is required", nil)
	}
	if strings.TrimSpace(opts.TempDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "temp directory is required", nil)
	}
	pc := &Context{
		Options:        opts,
		ToEncode:       stagequeue.New[Job](),
		ToTransfer:     stagequeue.New[Job](),
		Sample:         &progress.Sample{},
		RipStream:      progress.NewStream(),
		EncodeStream:   progress.NewStream(),
		TransferStream: progress.NewStream(),
		Extractor:      extractor,
		Transferer:     transferer,
		Logger:         logging.NewNop(),
	}
	for _, opt := range ctxOpts {
		if opt != nil {
			opt(pc)
		}
	}
	if opts.ExternalEncoding() && pc.Encoder == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			fmt.Sprintf("external encoding %q requires an encoder", opts.ExternalMode), nil)
	}
	return pc, nil
}

// Submit pushes a job onto the encode queue.
func (pc *Context) Submit(job Job) error {
	return push(pc.ToEncode, job)
}

func push(q *stagequeue.Queue[Job], job Job) error {
	if strings.TrimSpace(job.PayloadPath) == "" {
		return fmt.Errorf("track %d: %w", job.Ordinal, ErrEmptyPayload)
	}
	q.Push(job)
	return nil
}

// Failures returns a copy of the non-fatal errors recorded so far.
func (pc *Context) Failures() []error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([]error, len(pc.failures))
	copy(out, pc.failures)
	return out
}

func (pc *Context) recordFailure(err error) {
	pc.mu.Lock()
	pc.failures = append(pc.failures, err)
	pc.mu.Unlock()
}

func (pc *Context) notify(outcome Outcome) {
	if pc.Observer != nil {
		pc.Observer(outcome)
	}
}
