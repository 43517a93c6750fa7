package netmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"cd2md/internal/logging"
	"cd2md/internal/services"
	"cd2md/internal/subprocess"
)

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

// WithVerbose passes -v to every invocation.
func WithVerbose(verbose bool) Option {
	return func(c *Client) { c.verbose = verbose }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps netmd-cli invocations.
type Client struct {
	binary  string
	verbose bool
	runner  subprocess.Runner
	logger  *slog.Logger
}

// New constructs a netmd-cli client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("netmd-cli binary required")
	}
	c := &Client{binary: binary, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = subprocess.NewExec(c.logger)
	}
	c.logger = logging.NewComponentLogger(c.logger, "netmd")
	return c, nil
}

// Erase wipes every track from the MD.
func (c *Client) Erase(ctx context.Context, sink io.Writer) error {
	return c.run(ctx, "erase", sink, "erase_disc")
}

// SetTitle sets the disc title.
func (c *Client) SetTitle(ctx context.Context, title string, sink io.Writer) error {
	return c.run(ctx, "title", sink, "plain_title", title)
}

// Send uploads file as a new track. mode "lp2" or "lp4" asks the device to
// encode on the fly; anything else sends the file as-is.
func (c *Client) Send(ctx context.Context, file, title, mode string, sink io.Writer) error {
	var args []string
	switch mode {
	case "lp2", "lp4":
		args = append(args, "-d", mode)
	}
	args = append(args, "send", file, title)
	return c.run(ctx, "send", sink, args...)
}

// Group collects the tracks up to lastTrack under title.
func (c *Client) Group(ctx context.Context, lastTrack int, title string, sink io.Writer) error {
	return c.run(ctx, "group", sink, "group", strconv.Itoa(lastTrack), title)
}

// Info reads the device and disc report.
func (c *Client) Info(ctx context.Context) (DeviceInfo, error) {
	var out bytes.Buffer
	if err := c.run(ctx, "info", &out, "list_json"); err != nil {
		return DeviceInfo{}, err
	}
	info, err := ParseInfo(out.Bytes())
	if err != nil {
		return DeviceInfo{}, services.Wrap(services.ErrDevice, "netmd", "list_json", "Unreadable device report", err)
	}
	c.logger.Debug("device report",
		logging.String("device", info.Name),
		logging.Bool("lp_encoder", info.OnTheFlyLP),
		logging.Int("tracks", info.Disc.TrackCount),
		logging.Int("free_seconds", info.Disc.FreeSeconds),
	)
	return info, nil
}

func (c *Client) run(ctx context.Context, op string, sink io.Writer, args ...string) error {
	argv := []string{"-y"}
	if c.verbose {
		argv = append(argv, "-v")
	}
	argv = append(argv, args...)
	if err := c.runner.Run(ctx, c.binary, argv, sink); err != nil {
		return services.Wrap(services.ErrExternalTool, "transfer", op, fmt.Sprintf("Error running %s %s", c.binary, strings.Join(argv, " ")), err)
	}
	return nil
}
