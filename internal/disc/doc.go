// Package disc talks to the optical drive.
//
// It converts table-of-contents addresses into a track list, derives the
// CDDB disc identifier, and exposes raw audio reads plus tray control through
// the Reader interface. On Linux, Device implements Reader with cdrom ioctls
// and WaitForMedia listens for udev media events.
package disc
