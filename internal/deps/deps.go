package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"cd2md/internal/config"
)

// Requirement defines an external dependency cd2md relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external tools a run with cfg needs. The encoder is
// optional unless external encoding is configured.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "netmd-cli",
			Command:     cfg.Tools.TransferBinary,
			Description: "Transfers tracks to the NetMD recorder",
		},
		{
			Name:        "atracdenc",
			Command:     cfg.Tools.EncoderBinary,
			Description: "Encodes ATRAC3 (LP2/LP4) before transfer",
			Optional:    !cfg.ExternalEncoding(),
		},
		{
			Name:        "eject",
			Command:     "eject",
			Description: "Fallback tray ejection",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
