//go:build linux

package disc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux CD-ROM ioctl requests from <linux/cdrom.h>.
const (
	ioctlCDROMReadTOCHeader = 0x5305
	ioctlCDROMReadTOCEntry  = 0x5306
	ioctlCDROMEject         = 0x5309
	ioctlCDROMReadAudio     = 0x530e
	ioctlCDROMDriveStatus   = 0x5326
	ioctlCDROMLockDoor      = 0x5329

	cdromLBA     = 0x01
	cdromMSF     = 0x02
	cdromLeadout = 0xAA
)

type cdromTOCHeader struct {
	first uint8
	last  uint8
}

type cdromTOCEntry struct {
	track    uint8
	adrCtrl  uint8
	format   uint8
	_        uint8
	addr     [4]byte // union cdrom_addr: msf{minute,second,frame} or int lba
	datamode uint8
	_        [3]byte
}

type cdromReadAudio struct {
	addr       [4]byte
	addrFormat uint8
	_          [3]byte
	nframes    int32
	buf        *byte
}

// Device reads audio from a Linux CD-ROM block device through ioctls.
type Device struct {
	path    string
	ejector Ejector

	mu sync.Mutex
	fd int
}

var _ Reader = (*Device)(nil)

// NewDevice returns a reader for the given device node. The device is opened
// lazily by Open.
func NewDevice(path string) *Device {
	return &Device{path: strings.TrimSpace(path), ejector: NewEjector(), fd: -1}
}

// Path returns the device node.
func (d *Device) Path() string { return d.path }

// Open reads the table of contents and builds the disc index.
func (d *Device) Open(ctx context.Context) (Disc, error) {
	if err := ctx.Err(); err != nil {
		return Disc{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		if d.path == "" {
			return Disc{}, &DeviceError{Op: "open", Err: errors.New("empty device path")}
		}
		fd, err := unix.Open(d.path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			return Disc{}, &DeviceError{Op: "open", Device: d.path, Err: err}
		}
		d.fd = fd
	}

	var hdr cdromTOCHeader
	if err := d.ioctl(ioctlCDROMReadTOCHeader, unsafe.Pointer(&hdr)); err != nil {
		return Disc{}, &DeviceError{Op: "read toc header", Device: d.path, Err: err}
	}
	if hdr.last < hdr.first {
		return Disc{}, ErrEmptyDisc
	}

	entries := make([]TOCEntry, 0, int(hdr.last-hdr.first)+2)
	for track := int(hdr.first); track <= int(hdr.last); track++ {
		entry, err := d.readTOCEntry(uint8(track))
		if err != nil {
			return Disc{}, err
		}
		entries = append(entries, entry)
	}
	leadout, err := d.readTOCEntry(cdromLeadout)
	if err != nil {
		return Disc{}, err
	}
	entries = append(entries, leadout)

	return Build(entries)
}

func (d *Device) readTOCEntry(track uint8) (TOCEntry, error) {
	entry := cdromTOCEntry{track: track, format: cdromMSF}
	if err := d.ioctl(ioctlCDROMReadTOCEntry, unsafe.Pointer(&entry)); err != nil {
		return TOCEntry{}, &DeviceError{Op: fmt.Sprintf("read toc entry %d", track), Device: d.path, Err: err}
	}
	return TOCEntry{Minutes: entry.addr[0], Seconds: entry.addr[1], Frames: entry.addr[2]}, nil
}

// ReadRawSectors reads sectors raw audio frames starting at the sector that
// byteOffset addresses in the 2048-byte domain.
func (d *Device) ReadRawSectors(ctx context.Context, byteOffset int64, sectors int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sectors <= 0 {
		return nil, fmt.Errorf("invalid sector count %d", sectors)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil, &DeviceError{Op: "read audio", Device: d.path, Err: errors.New("device not open")}
	}

	buf := make([]byte, sectors*RawSectorBytes)
	req := cdromReadAudio{addrFormat: cdromLBA, nframes: int32(sectors), buf: &buf[0]}
	binary.NativeEndian.PutUint32(req.addr[:], uint32(byteOffset/DataSectorBytes))
	err := d.ioctl(ioctlCDROMReadAudio, unsafe.Pointer(&req))
	runtime.KeepAlive(buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Lock prevents the tray from being opened during extraction.
func (d *Device) Lock() error { return d.setDoorLock(1) }

// Unlock releases the tray lock.
func (d *Device) Unlock() error { return d.setDoorLock(0) }

func (d *Device) setDoorLock(value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return &DeviceError{Op: "lock door", Device: d.path, Err: errors.New("device not open")}
	}
	if err := unix.IoctlSetInt(d.fd, ioctlCDROMLockDoor, value); err != nil {
		return &DeviceError{Op: "lock door", Device: d.path, Err: err}
	}
	return nil
}

// Eject opens the tray, falling back to the eject utility when the ioctl is
// refused (e.g. the drive is still locked by another handle).
func (d *Device) Eject() error {
	d.mu.Lock()
	fd := d.fd
	d.mu.Unlock()
	if fd >= 0 {
		if err := unix.IoctlSetInt(fd, ioctlCDROMEject, 0); err == nil {
			return nil
		}
	}
	if err := d.ejector.Eject(context.Background(), d.path); err != nil {
		return &DeviceError{Op: "eject", Device: d.path, Err: err}
	}
	return nil
}

// Close releases the device handle.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *Device) ioctl(req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
