//go:build linux

package disc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckDriveStatus queries the drive state using the CDROM_DRIVE_STATUS ioctl.
func CheckDriveStatus(devicePath string) (DriveStatus, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return DriveStatusNoInfo, fmt.Errorf("empty device path")
	}

	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return DriveStatusNoInfo, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer unix.Close(fd) //nolint:errcheck

	status, err := unix.IoctlRetInt(fd, ioctlCDROMDriveStatus)
	if err != nil {
		return DriveStatusNoInfo, fmt.Errorf("ioctl CDROM_DRIVE_STATUS on %s: %w", devicePath, err)
	}
	return DriveStatus(status), nil
}

// WaitForReady polls the drive once per second until it reports
// DriveStatusDiscOK, the timeout elapses, or the context is cancelled.
func WaitForReady(ctx context.Context, devicePath string, timeout time.Duration) (DriveStatus, error) {
	const pollInterval = time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	deadline := time.Now().Add(timeout)

	var lastStatus DriveStatus
	for {
		status, err := CheckDriveStatus(devicePath)
		if err != nil {
			return status, err
		}
		lastStatus = status
		if status == DriveStatusDiscOK {
			return status, nil
		}
		if time.Now().After(deadline) {
			return lastStatus, fmt.Errorf("drive %s not ready after %s (last status: %s)", devicePath, timeout, lastStatus)
		}

		select {
		case <-ctx.Done():
			return lastStatus, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
