package progress

import "bytes"

// ExtractPercent returns the number immediately preceding the last '%' in
// buf. ok is false when buf has no '%' or no digits precede it.
func ExtractPercent(buf []byte) (percent int, ok bool) {
	pos := bytes.LastIndexByte(buf, '%')
	if pos < 0 {
		return 0, false
	}
	start := pos
	for start > 0 && buf[start-1] >= '0' && buf[start-1] <= '9' {
		start--
	}
	if start == pos {
		return 0, false
	}
	for _, c := range buf[start:pos] {
		percent = percent*10 + int(c-'0')
		if percent > 100 {
			percent = 100
		}
	}
	return percent, true
}
