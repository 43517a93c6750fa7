package disc

import (
	"errors"
	"fmt"

	"cd2md/internal/services"
)

// ErrEmptyDisc is returned by Build when the table of contents holds no tracks.
var ErrEmptyDisc = errors.New("disc has no audio tracks")

// TOCEntry is one raw table-of-contents address.
type TOCEntry struct {
	Minutes uint8
	Seconds uint8
	Frames  uint8
}

// Track is one audio track on the disc.
type Track struct {
	Ordinal     int
	StartSector uint64
	SectorCount uint64
}

// DurationSeconds returns the playing time in whole seconds.
func (t Track) DurationSeconds() uint64 {
	return t.SectorCount / FramesPerSecond
}

// ByteSize returns the size of the track's raw PCM payload.
func (t Track) ByteSize() uint64 {
	return t.SectorCount * RawSectorBytes
}

// Disc is an immutable track layout plus its derived identifier.
type Disc struct {
	Tracks     []Track
	Identifier uint32
}

// TotalSeconds sums the per-track durations.
func (d Disc) TotalSeconds() uint64 {
	var total uint64
	for _, t := range d.Tracks {
		total += t.DurationSeconds()
	}
	return total
}

// TotalBytes sums the per-track PCM sizes.
func (d Disc) TotalBytes() uint64 {
	var total uint64
	for _, t := range d.Tracks {
		total += t.ByteSize()
	}
	return total
}

// HexID renders the identifier the way CDDB servers expect it.
func (d Disc) HexID() string {
	return fmt.Sprintf("%08x", d.Identifier)
}

// Build derives the track list from TOC entries. entries holds every track
// address in order followed by the lead-out address.
func Build(entries []TOCEntry) (Disc, error) {
	if len(entries) < 2 {
		return Disc{}, ErrEmptyDisc
	}

	tracks := make([]Track, 0, len(entries)-1)
	for i := 0; i < len(entries)-1; i++ {
		start := AddressToSector(entries[i].Minutes, entries[i].Seconds, entries[i].Frames)
		next := AddressToSector(entries[i+1].Minutes, entries[i+1].Seconds, entries[i+1].Frames)
		if start < 0 {
			return Disc{}, &DeviceError{Op: "read toc", Err: fmt.Errorf("track %d starts inside the lead-in", i+1)}
		}
		if next <= start {
			return Disc{}, &DeviceError{Op: "read toc", Err: fmt.Errorf("track %d has non-positive length", i+1)}
		}
		tracks = append(tracks, Track{
			Ordinal:     i + 1,
			StartSector: uint64(start),
			SectorCount: uint64(next - start),
		})
	}

	return Disc{Tracks: tracks, Identifier: DiscIdentifier(tracks)}, nil
}

// DeviceError reports a failure talking to the drive. It is fatal for the run.
type DeviceError struct {
	Op     string
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Is lets callers match DeviceError against services.ErrDevice.
func (e *DeviceError) Is(target error) bool { return target == services.ErrDevice }
