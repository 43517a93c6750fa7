package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"cd2md/internal/logging"
)

var spinner = [...]byte{'|', '/', '-', '\\'}

// FormatStatus renders the combined status line without the leading
// carriage return. The encode segment is present only when external encoding
// runs.
func FormatStatus(snap Snapshot, withEncode bool, spin int) string {
	var b strings.Builder
	segment := func(label string, stage Stage) {
		fmt.Fprintf(&b, "[ %s: %3d / %-3d%4d%% ] ", label, snap.Track[stage], snap.Total, snap.Percent[stage])
	}
	segment("CD-Rip", StageRip)
	if withEncode {
		segment("X-Encode", StageEncode)
	}
	segment("MD Transfer", StageTransfer)
	b.WriteByte(spinner[spin%len(spinner)])
	return b.String()
}

// Renderer writes status lines to a terminal in place, or as sampled plain
// lines when the output is not a terminal.
type Renderer struct {
	out        io.Writer
	withEncode bool
	tty        bool
	width      int

	mu       sync.Mutex
	spin     int
	drawn    bool
	samplers [stageCount]*logging.ProgressSampler
}

// NewRenderer prepares a renderer for out.
func NewRenderer(out io.Writer, withEncode bool) *Renderer {
	r := &Renderer{out: out, withEncode: withEncode}
	for i := range r.samplers {
		r.samplers[i] = logging.NewProgressSampler(10)
	}
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		fd := f.Fd()
		r.tty = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		if r.tty {
			if w, _, err := term.GetSize(int(fd)); err == nil {
				r.width = w
			}
		}
	}
	return r
}

// Render draws snap.
func (r *Renderer) Render(snap Snapshot) {
	if r == nil || r.out == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	line := FormatStatus(snap, r.withEncode, r.spin)
	r.spin++

	if r.tty {
		if r.width > 1 && len(line) >= r.width {
			line = line[:r.width-1]
		}
		fmt.Fprint(r.out, "\r"+line)
		r.drawn = true
		return
	}

	// Plain output: one line whenever a stage moves to a new track or
	// crosses a 10% bucket.
	emit := false
	for stage := Stage(0); stage < stageCount; stage++ {
		if stage == StageEncode && !r.withEncode {
			continue
		}
		key := fmt.Sprintf("track %d", snap.Track[stage])
		if r.samplers[stage].ShouldLog(float64(snap.Percent[stage]), key) {
			emit = true
		}
	}
	if emit {
		fmt.Fprintln(r.out, strings.TrimRight(line[:len(line)-1], " "))
	}
}

// Finish terminates an in-place status line.
func (r *Renderer) Finish() {
	if r == nil || r.out == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty && r.drawn {
		fmt.Fprintln(r.out)
		r.drawn = false
	}
}
