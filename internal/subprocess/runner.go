// Package subprocess runs the external encoder and transfer tools.
package subprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"cd2md/internal/logging"
	"cd2md/internal/services"
)

// CompletionToken is written to the sink after a zero exit so tools that
// never print their own final percentage still read as finished.
const CompletionToken = " 100% \n"

// Runner starts a tool and waits for it. When sink is non-nil it receives
// the tool's stdout and stderr; otherwise the tool inherits the console.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, sink io.Writer) error
}

// ExitError reports a tool that exited non-zero.
type ExitError struct {
	Binary string
	Args   []string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
}

// Is matches services.ErrExternalTool.
func (e *ExitError) Is(target error) bool { return target == services.ErrExternalTool }

// ExitCode extracts the exit status from err: 0 for nil, the tool's status
// for an ExitError, -1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// Exec runs tools with os/exec.
type Exec struct {
	logger *slog.Logger
}

// NewExec returns a Runner backed by os/exec.
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exec{logger: logging.NewComponentLogger(logger, "subprocess")}
}

func (e *Exec) Run(ctx context.Context, binary string, args []string, sink io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if sink != nil {
		cmd.Stdout = sink
		cmd.Stderr = sink
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	e.logger.Debug("running tool",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Binary: binary, Args: append([]string(nil), args...), Code: exitErr.ExitCode()}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrExternalTool, "subprocess", "start", binary, err)
	}

	if sink != nil {
		_, _ = io.WriteString(sink, CompletionToken)
	}
	return nil
}
