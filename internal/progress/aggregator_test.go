package progress

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestAggregatorPollUpdatesOnlyOnChange(t *testing.T) {
	rip, enc, trf := NewStream(), NewStream(), NewStream()
	sample := &Sample{}
	agg := NewAggregator(rip, enc, trf, sample, time.Millisecond, nil)

	if agg.Poll() {
		t.Fatal("empty streams should not report a change")
	}

	rip.Write([]byte("35%\n"))
	trf.Write([]byte("netmd: sending... 7% "))
	if !agg.Poll() {
		t.Fatal("expected change")
	}
	snap := sample.Snapshot()
	if snap.Percent[StageRip] != 35 || snap.Percent[StageTransfer] != 7 || snap.Percent[StageEncode] != 0 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	rip.Write([]byte("chatter without numbers"))
	if agg.Poll() {
		t.Fatal("chatter should not change the sample")
	}

	rip.Write([]byte("35%\n"))
	if agg.Poll() {
		t.Fatal("identical percentage should not trigger a render")
	}
}

func TestAggregatorJoinsSplitTokens(t *testing.T) {
	enc := NewStream()
	sample := &Sample{}
	agg := NewAggregator(nil, enc, nil, sample, time.Millisecond, nil)

	enc.Write([]byte("encoding 4"))
	agg.Poll()
	enc.Write([]byte("2% "))
	agg.Poll()
	if got := sample.Snapshot().Percent[StageEncode]; got != 42 {
		t.Fatalf("encode percent = %d, want 42", got)
	}
}

func TestAggregatorRunRendersFinalState(t *testing.T) {
	rip := NewStream()
	sample := &Sample{}

	var mu sync.Mutex
	var last Snapshot
	renders := 0
	agg := NewAggregator(rip, nil, nil, sample, 5*time.Millisecond, func(s Snapshot) {
		mu.Lock()
		last = s
		renders++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		agg.Run(ctx)
		close(done)
	}()

	rip.Write([]byte("100%\n"))
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if renders == 0 || last.Percent[StageRip] != 100 {
		t.Fatalf("renders=%d last=%+v", renders, last)
	}
}

func TestFormatStatus(t *testing.T) {
	snap := Snapshot{Total: 12, Percent: [3]int{45, 10, 100}, Track: [3]int{3, 2, 1}}

	got := FormatStatus(snap, true, 1)
	want := "[ CD-Rip:   3 / 12   45% ] [ X-Encode:   2 / 12   10% ] [ MD Transfer:   1 / 12  100% ] /"
	if got != want {
		t.Fatalf("FormatStatus =\n%q\nwant\n%q", got, want)
	}

	if strings.Contains(FormatStatus(snap, false, 0), "X-Encode") {
		t.Fatal("encode segment should be hidden without external encoding")
	}
}

func TestRendererPlainOutputIsSampled(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)
	snap := Snapshot{Total: 2, Track: [3]int{1, 0, 0}}

	for pct := 0; pct <= 100; pct++ {
		snap.Percent[StageRip] = pct
		r.Render(snap)
	}
	r.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 sampled lines, got %d:\n%s", len(lines), buf.String())
	}
	if strings.Contains(buf.String(), "\r") {
		t.Fatal("plain output must not contain carriage returns")
	}
}
