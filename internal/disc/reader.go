package disc

import "context"

// Reader abstracts the optical drive. Byte offsets passed to ReadRawSectors
// use the 2048-byte data-sector domain; the returned payload holds
// sectors*RawSectorBytes bytes of PCM audio.
type Reader interface {
	Open(ctx context.Context) (Disc, error)
	ReadRawSectors(ctx context.Context, byteOffset int64, sectors int) ([]byte, error)
	Lock() error
	Unlock() error
	Eject() error
	Close() error
}
