package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CD audio parameters.
const (
	SampleRate    = 44100
	Channels      = 2
	BitsPerSample = 16

	// PCMHeaderSize is the length of the canonical WAVE header.
	PCMHeaderSize = 44
)

// PCMHeader returns the 44-byte WAVE header for dataSize bytes of CD audio.
func PCMHeader(dataSize uint32) []byte {
	buf := make([]byte, 0, PCMHeaderSize)
	le := binary.LittleEndian

	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, dataSize+PCMHeaderSize-8)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, 1)
	buf = le.AppendUint16(buf, Channels)
	buf = le.AppendUint32(buf, SampleRate)
	buf = le.AppendUint32(buf, Channels*BitsPerSample*SampleRate/8)
	buf = le.AppendUint16(buf, Channels*BitsPerSample/8)
	buf = le.AppendUint16(buf, BitsPerSample)
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, dataSize)
	return buf
}

// WritePCMHeader writes PCMHeader(dataSize) to w.
func WritePCMHeader(w io.Writer, dataSize uint32) error {
	if _, err := w.Write(PCMHeader(dataSize)); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	return nil
}
