package services

import (
	"errors"
	"fmt"
	"strings"

	"cd2md/internal/history"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrDevice        = errors.New("device error")
	ErrRead          = errors.New("read failure")
	ErrCapacity      = errors.New("capacity error")
	ErrAborted       = errors.New("aborted by user")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must abort the whole run. Device, capacity and
// configuration problems are fatal; per-track read and tool failures are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrDevice), errors.Is(err, ErrCapacity),
		errors.Is(err, ErrConfiguration), errors.Is(err, ErrAborted):
		return true
	case errors.Is(err, ErrRead), errors.Is(err, ErrExternalTool):
		return false
	default:
		return true
	}
}

// FailureStatus maps a run error to the history status persisted for the run.
func FailureStatus(err error) history.Status {
	switch {
	case errors.Is(err, ErrAborted), errors.Is(err, ErrCapacity),
		errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return history.StatusAborted
	default:
		return history.StatusFailed
	}
}

// Hint returns a short operator suggestion for err's marker, or "" when
// none applies.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDevice):
		return "check that a disc is in the drive and the device path is right"
	case errors.Is(err, ErrCapacity):
		return "use --encode lp2 or lp4 to fit more audio"
	case errors.Is(err, ErrConfiguration):
		return "run cd2md deps"
	case errors.Is(err, ErrExternalTool):
		return "rerun with --verbose to see the tool output"
	case errors.Is(err, ErrRead):
		return "clean the disc and retry"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return "retry the command"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
