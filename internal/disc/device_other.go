//go:build !linux

package disc

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var errUnsupported = errors.New("audio extraction requires linux cdrom ioctls")

// Device is unavailable on this platform; every operation fails.
type Device struct {
	path string
}

var _ Reader = (*Device)(nil)

func NewDevice(path string) *Device { return &Device{path: path} }

func (d *Device) Path() string { return d.path }

func (d *Device) Open(context.Context) (Disc, error) {
	return Disc{}, &DeviceError{Op: "open", Device: d.path, Err: errUnsupported}
}

func (d *Device) ReadRawSectors(context.Context, int64, int) ([]byte, error) {
	return nil, errUnsupported
}

func (d *Device) Lock() error   { return errUnsupported }
func (d *Device) Unlock() error { return errUnsupported }

func (d *Device) Eject() error {
	return NewEjector().Eject(context.Background(), d.path)
}

func (d *Device) Close() error { return nil }

func CheckDriveStatus(string) (DriveStatus, error) { return DriveStatusNoInfo, errUnsupported }

func WaitForReady(context.Context, string, time.Duration) (DriveStatus, error) {
	return DriveStatusNoInfo, errUnsupported
}

func WaitForMedia(context.Context, string, time.Duration, *slog.Logger) error {
	return errUnsupported
}
