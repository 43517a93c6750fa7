package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"cd2md/internal/config"
)

// Options describes logger construction parameters. Source forces caller
// locations, which are always added at debug level.
type Options struct {
	Level   string
	Format  string
	Outputs []string
	Source  bool
}

// New constructs a slog logger writing to every output in opts. Each output
// gets its own handler so terminal detection applies per destination.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	withSource := opts.Source || level.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "" && format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	names := opts.Outputs
	if len(names) == 0 {
		names = []string{"stderr"}
	}
	outs, err := openOutputs(names)
	if err != nil {
		return nil, err
	}

	handlers := make([]slog.Handler, 0, len(outs))
	for _, out := range outs {
		if format == "json" {
			handlers = append(handlers, newJSONHandler(out.w, level, withSource))
			continue
		}
		handlers = append(handlers, newConsoleHandler(out.w, level, withSource, out.tty))
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig creates the application logger. Console output goes to stderr
// so it never interleaves with the status line on stdout; a copy is appended to
// <log_dir>/cd2md.log.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	outputs := []string{"stderr"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		outputs = append(outputs, filepath.Join(dir, "cd2md.log"))
	}
	level := cfg.Logging.Level
	if cfg.Tools.Verbose {
		level = "debug"
	}
	return New(Options{Level: level, Format: cfg.Logging.Format, Outputs: outputs})
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}
	return level
}

type output struct {
	w   io.Writer
	tty bool
}

func openOutputs(names []string) ([]output, error) {
	outs := make([]output, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var f *os.File
		switch name {
		case "stdout":
			f = os.Stdout
		case "stderr":
			f = os.Stderr
		default:
			if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", name, err)
			}
			f = file
		}
		outs = append(outs, output{w: f, tty: isatty.IsTerminal(f.Fd())})
	}
	if len(outs) == 0 {
		outs = append(outs, output{w: os.Stderr})
	}
	return outs, nil
}
