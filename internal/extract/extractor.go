package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"cd2md/internal/audiofile"
	"cd2md/internal/disc"
	"cd2md/internal/logging"
	"cd2md/internal/services"
)

// ChunkSectors is the number of sectors requested per read.
const ChunkSectors = 20

// ReadFailure reports a failed chunk read. The track is skipped; the run
// continues.
type ReadFailure struct {
	TrackOrdinal int
	Code         int
	Err          error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("read failure on track %d (code %d): %v", e.TrackOrdinal, e.Code, e.Err)
}

func (e *ReadFailure) Unwrap() error { return e.Err }

// Is matches services.ErrRead.
func (e *ReadFailure) Is(target error) bool { return target == services.ErrRead }

// Extractor reads tracks through a disc.Reader.
type Extractor struct {
	reader disc.Reader
	logger *slog.Logger
}

// New builds an extractor around reader.
func New(reader disc.Reader, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{reader: reader, logger: logging.NewComponentLogger(logger, "extract")}
}

// Extract writes a WAVE header followed by the track's PCM payload to dst.
// Progress tokens ("NN%\n") are written to progress when it is non-nil; the
// final token is always 100.
func (e *Extractor) Extract(ctx context.Context, track disc.Track, dst io.Writer, progress io.Writer) error {
	if e == nil || e.reader == nil {
		return services.Wrap(services.ErrConfiguration, "extract", "init", "No disc reader configured", nil)
	}
	if track.SectorCount == 0 {
		return &ReadFailure{TrackOrdinal: track.Ordinal, Err: errors.New("track has no sectors")}
	}
	if err := audiofile.WritePCMHeader(dst, uint32(track.ByteSize())); err != nil {
		return err
	}

	fullChunks := track.SectorCount / ChunkSectors
	remainder := track.SectorCount % ChunkSectors

	var consumed uint64
	read := func(sectors uint64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		offset := int64(track.StartSector+consumed*ChunkSectors) * disc.DataSectorBytes
		data, err := e.reader.ReadRawSectors(ctx, offset, int(sectors))
		if err != nil {
			return &ReadFailure{TrackOrdinal: track.Ordinal, Code: errnoCode(err), Err: err}
		}
		if _, err := dst.Write(data); err != nil {
			return fmt.Errorf("write track %d: %w", track.Ordinal, err)
		}
		return nil
	}

	for consumed < fullChunks {
		if err := read(ChunkSectors); err != nil {
			return err
		}
		consumed++
		reportPercent(progress, roundedPercent(consumed, fullChunks))
	}
	if remainder > 0 {
		if err := read(remainder); err != nil {
			return err
		}
		reportPercent(progress, 100)
	}
	return nil
}

// ExtractToFile writes the track to path. A partially written file is removed
// on failure.
func (e *Extractor) ExtractToFile(ctx context.Context, track disc.Track, path string, progress io.Writer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	w := bufio.NewWriterSize(f, ChunkSectors*disc.RawSectorBytes*4)
	if err = e.Extract(ctx, track, w, progress); err != nil {
		f.Close()
		return err
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	e.logger.Debug("track extracted",
		logging.Int(logging.FieldTrack, track.Ordinal),
		logging.String("path", path),
		logging.Uint64("bytes", track.ByteSize()),
	)
	return nil
}

func roundedPercent(done, total uint64) int {
	return int((done*200 + total) / (2 * total))
}

func reportPercent(w io.Writer, pct int) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%d%%\n", pct)
}

func errnoCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}
