package netmd

import (
	"fmt"

	"cd2md/internal/services"
)

// CapacityError reports that the run does not fit on the MD.
type CapacityError struct {
	NeedSeconds int
	HaveSeconds int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough free space on MD (need: %s, have: %s)",
		FormatDuration(e.NeedSeconds), FormatDuration(e.HaveSeconds))
}

// Is matches services.ErrCapacity.
func (e *CapacityError) Is(target error) bool { return target == services.ErrCapacity }

// FormatDuration renders seconds as "MMm SSs", prefixed with "HHh " when at
// least an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%02dm %02ds", m, s)
}

// AvailableSeconds returns the playing time left for a run. Appending uses
// the free space; otherwise the whole disc is available after erase. LP2
// doubles and LP4 quadruples the SP figure.
func AvailableSeconds(disc DiscInfo, mode string, appendTracks bool) int {
	free := disc.TotalSeconds
	if appendTracks {
		free = disc.FreeSeconds
	}
	switch mode {
	case "lp2":
		free *= 2
	case "lp4":
		free *= 4
	}
	return free
}

// CheckCapacity fails with a CapacityError when needSeconds exceeds the
// available playing time.
func CheckCapacity(disc DiscInfo, needSeconds int, mode string, appendTracks bool) error {
	have := AvailableSeconds(disc, mode, appendTracks)
	if have < needSeconds {
		return &CapacityError{NeedSeconds: needSeconds, HaveSeconds: have}
	}
	return nil
}
