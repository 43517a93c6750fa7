package cddb

import (
	"fmt"
	"strconv"
	"strings"

	"cd2md/internal/disc"
)

// BuildQuery renders the "cddb query" arguments for d:
//
//	discid+trackCount+offset1+...+offsetN+totalSeconds
//
// Offsets are frame addresses with the lead-in added back.
func BuildQuery(d disc.Disc) string {
	id := d.Identifier
	var b strings.Builder
	fmt.Fprintf(&b, "%08x+%d", id, id&0xff)
	for _, t := range d.Tracks {
		b.WriteByte('+')
		b.WriteString(strconv.FormatUint(t.StartSector+disc.LeadInFrames, 10))
	}
	fmt.Fprintf(&b, "+%d", (id>>8)&0xffff)
	return b.String()
}
