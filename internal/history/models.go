package history

import (
	"strings"
	"time"
)

// Status represents the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// ParseStatus converts a string into a Status if recognised.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusRunning, StatusCompleted, StatusPartial, StatusFailed, StatusAborted:
		return s, true
	}
	return "", false
}

// Run is one disc session.
type Run struct {
	ID           string
	DiscID       string
	DiscTitle    string
	TrackCount   int
	TransferMode string
	ExternalMode string
	Append       bool
	Status       Status
	Extracted    int
	Encoded      int
	Transferred  int
	ReadFailures int
	ToolFailures int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took, or the time elapsed so far.
func (r Run) Duration() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(r.StartedAt)
}

// Counts summarises the per-stage outcome of a finished run.
type Counts struct {
	Extracted    int
	Encoded      int
	Transferred  int
	ReadFailures int
	ToolFailures int
}

// TrackRecord is one track's outcome within a run.
type TrackRecord struct {
	RunID        string
	Ordinal      int
	Title        string
	Seconds      int
	Extracted    bool
	Encoded      bool
	Transferred  bool
	FailedStage  string
	ErrorMessage string
	UpdatedAt    time.Time
}
