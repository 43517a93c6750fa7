//go:build linux

package disc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"cd2md/internal/logging"
)

// WaitForMedia blocks until the drive reports loaded media. It listens for
// udev media-change events and re-checks the drive status every few seconds
// so insertions that race the subscription are not missed. Without netlink
// access it falls back to WaitForReady.
func WaitForMedia(ctx context.Context, device string, timeout time.Duration, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "media-monitor")
	device = strings.TrimSpace(device)

	if status, err := CheckDriveStatus(device); err == nil && status == DriveStatusDiscOK {
		return nil
	}

	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logger.Warn("failed to connect to netlink socket; polling drive status instead",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
		)
		if _, err := WaitForReady(ctx, device, timeout); err != nil {
			return &DeviceError{Op: "wait for media", Device: device, Err: err}
		}
		return nil
	}
	defer conn.Close() //nolint:errcheck

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, mediaMatcher())
	defer close(quit)

	logger.Info("waiting for disc", logging.String("device", device))

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return &DeviceError{Op: "wait for media", Device: device, Err: fmt.Errorf("no disc after %s: %w", timeout, ctx.Err())}
		case ev := <-queue:
			if eventDevice(ev) != device {
				continue
			}
			logger.Info("disc media detected",
				logging.String(logging.FieldEventType, "netlink_disc_detected"),
				logging.String("device", device),
				logging.String("action", string(ev.Action)),
			)
			return nil
		case err := <-errs:
			logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
			)
		case <-ticker.C:
			if status, err := CheckDriveStatus(device); err == nil && status == DriveStatusDiscOK {
				return nil
			}
		}
	}
}

// mediaMatcher matches SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1 and
// ACTION=change|add.
func mediaMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func eventDevice(ev netlink.UEvent) string {
	if devname := ev.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := ev.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
