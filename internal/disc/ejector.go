package disc

import (
	"context"
	"fmt"
	"os/exec"
)

// Ejector opens the drive tray.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

type commandEjector struct{}

// NewEjector creates an ejector that shells out to the eject utility. Device
// uses it when the CDROMEJECT ioctl is refused.
func NewEjector() Ejector {
	return commandEjector{}
}

func (commandEjector) Eject(ctx context.Context, device string) error {
	args := []string{}
	if device != "" {
		args = append(args, device)
	}
	if out, err := exec.CommandContext(ctx, "eject", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("eject %s: %w (%s)", device, err, string(out))
	}
	return nil
}
