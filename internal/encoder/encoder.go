// Package encoder drives atracdenc to turn ripped PCM into ATRAC3 payloads
// for LP2/LP4 transfers.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cd2md/internal/audiofile"
	"cd2md/internal/logging"
	"cd2md/internal/services"
	"cd2md/internal/subprocess"
)

var bitrates = map[string]int{
	"lp2": 128,
	"lp4": 64,
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r subprocess.Runner) Option {
	return func(c *Client) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithKeepIntermediate retains the raw .aea output next to the track.
func WithKeepIntermediate(keep bool) Option {
	return func(c *Client) { c.keepAEA = keep }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps atracdenc invocations.
type Client struct {
	binary  string
	runner  subprocess.Runner
	keepAEA bool
	logger  *slog.Logger
}

// New constructs an encoder client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("encoder binary required")
	}
	c := &Client{binary: binary, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = subprocess.NewExec(c.logger)
	}
	c.logger = logging.NewComponentLogger(c.logger, "atracdenc")
	return c, nil
}

// Encode compresses the WAVE file at wavPath in place. mode is "lp2" or
// "lp4". Tool output goes to sink.
func (c *Client) Encode(ctx context.Context, wavPath, mode string, sink io.Writer) error {
	bitrate, ok := bitrates[mode]
	if !ok {
		return services.Wrap(services.ErrValidation, "encode", "mode", fmt.Sprintf("unsupported mode %q", mode), nil)
	}
	aeaPath := wavPath + ".aea"
	args := []string{
		"-e", "atrac3",
		fmt.Sprintf("--bitrate=%d", bitrate),
		"-i", wavPath,
		"-o", aeaPath,
	}

	if err := c.runner.Run(ctx, c.binary, args, sink); err != nil {
		_ = os.Remove(aeaPath)
		return services.Wrap(services.ErrExternalTool, "encode", "atracdenc", fmt.Sprintf("Encoding %s failed", wavPath), err)
	}
	defer func() {
		if c.keepAEA {
			return
		}
		if err := os.Remove(aeaPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove intermediate file",
				logging.String("path", aeaPath),
				logging.Error(err),
			)
		}
	}()

	if err := audiofile.Rewrap(aeaPath, wavPath, mode); err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "rewrap", "Encoded payload unusable", err)
	}
	return nil
}
