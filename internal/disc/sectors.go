package disc

// Red Book addressing constants.
const (
	// FramesPerSecond is the disc's native time-addressing granularity.
	FramesPerSecond = 75
	// LeadInFrames is the 2-second lead-in subtracted from MSF addresses.
	LeadInFrames = 150
	// RawSectorBytes is the size of one raw audio sector.
	RawSectorBytes = 2352
	// DataSectorBytes is the size of one data sector, used for byte offsets.
	DataSectorBytes = 2048
)

// AddressToSector converts a minute/second/frame address into a zero-based
// logical sector. Addresses inside the lead-in yield negative values.
func AddressToSector(minutes, seconds, frames uint8) int64 {
	return int64(minutes)*60*FramesPerSecond +
		int64(seconds)*FramesPerSecond +
		int64(frames) - LeadInFrames
}

// DigitSum adds the base-10 digits of n, e.g. 2344 -> 13.
func DigitSum(n uint64) int {
	sum := 0
	for n > 0 {
		sum += int(n % 10)
		n /= 10
	}
	return sum
}

// DiscIdentifier computes the CDDB/freedb disc id:
//
//	(checksum & 0xff) << 24 | (totalSeconds & 0xffff) << 8 | trackCount
//
// where checksum is the sum of DigitSum over every track's start in whole
// seconds (lead-in included). An empty slice yields 0.
func DiscIdentifier(tracks []Track) uint32 {
	if len(tracks) == 0 {
		return 0
	}

	var checksum uint64
	for _, t := range tracks {
		checksum += uint64(DigitSum((t.StartSector + LeadInFrames) / FramesPerSecond))
	}

	first := tracks[0]
	last := tracks[len(tracks)-1]
	total := (last.StartSector+last.SectorCount+LeadInFrames)/FramesPerSecond -
		(first.StartSector+LeadInFrames)/FramesPerSecond

	return uint32(checksum&0xff)<<24 |
		uint32(total&0xffff)<<8 |
		uint32(len(tracks)&0xff)
}
