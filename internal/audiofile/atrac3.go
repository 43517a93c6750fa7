package audiofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AEAHeaderSize is the length of the header atracdenc writes before the
// ATRAC3 frames.
const AEAHeaderSize = 96

const (
	atrac3FormatTag = 0x0270
	atrac3FmtSize   = 0x20
	atrac3ExtSize   = 0x0E
)

// ErrShortPayload reports an encoder output with no audio after its header.
var ErrShortPayload = errors.New("encoded payload holds no audio frames")

type atrac3Params struct {
	avgBytesPerSec uint32
	blockAlign     uint16
	extension      [atrac3ExtSize]byte
}

var atrac3Modes = map[string]atrac3Params{
	"lp2": {
		avgBytesPerSec: 16537,
		blockAlign:     0x180,
		extension:      [atrac3ExtSize]byte{0x01, 0x00, 0x44, 0xAC, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
	},
	"lp4": {
		avgBytesPerSec: 8268,
		blockAlign:     0xC0,
		extension:      [atrac3ExtSize]byte{0x01, 0x00, 0x44, 0xAC, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00},
	},
}

// ATRAC3Header returns the WAVE header for dataSize bytes of ATRAC3 frames in
// the given mode ("lp2" or "lp4").
func ATRAC3Header(mode string, dataSize uint32) ([]byte, error) {
	params, ok := atrac3Modes[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported atrac3 mode %q", mode)
	}

	le := binary.LittleEndian
	buf := make([]byte, 0, 12+8+atrac3FmtSize+8)
	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, 4+8+atrac3FmtSize+8+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, atrac3FmtSize)
	buf = le.AppendUint16(buf, atrac3FormatTag)
	buf = le.AppendUint16(buf, Channels)
	buf = le.AppendUint32(buf, SampleRate)
	buf = le.AppendUint32(buf, params.avgBytesPerSec)
	buf = le.AppendUint16(buf, params.blockAlign)
	buf = le.AppendUint16(buf, 0)
	buf = le.AppendUint16(buf, atrac3ExtSize)
	buf = append(buf, params.extension[:]...)
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, dataSize)
	return buf, nil
}

// Rewrap replaces wavPath with the ATRAC3 frames from aeaPath wrapped in a
// WAVE container. The AEA header is dropped.
func Rewrap(aeaPath, wavPath, mode string) error {
	payload, err := os.ReadFile(aeaPath)
	if err != nil {
		return fmt.Errorf("read encoded payload: %w", err)
	}
	if len(payload) <= AEAHeaderSize {
		return fmt.Errorf("%s: %w", filepath.Base(aeaPath), ErrShortPayload)
	}
	frames := payload[AEAHeaderSize:]

	header, err := ATRAC3Header(mode, uint32(len(frames)))
	if err != nil {
		return err
	}

	tmp := wavPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := f.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write atrac3 header: %w", err)
	}
	if _, err := f.Write(frames); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write atrac3 frames: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, wavPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", wavPath, err)
	}
	return nil
}
