package progress

import (
	"context"
	"time"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 50 * time.Millisecond

// tailBytes bounds how much of each stream is kept between polls so a token
// split across two writes is still recognised.
const tailBytes = 32

// Aggregator polls the three stage streams and renders on change.
type Aggregator struct {
	streams  [stageCount]*Stream
	sample   *Sample
	interval time.Duration
	render   func(Snapshot)
	tails    [stageCount][]byte
}

// NewAggregator wires the stage streams to sample. render is called with
// every changed snapshot and may be nil.
func NewAggregator(rip, encode, transfer *Stream, sample *Sample, interval time.Duration, render func(Snapshot)) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{
		streams:  [stageCount]*Stream{rip, encode, transfer},
		sample:   sample,
		interval: interval,
		render:   render,
	}
}

// Poll drains every stream once and reports whether any percentage changed.
func (a *Aggregator) Poll() bool {
	changed := false
	for i := Stage(0); i < stageCount; i++ {
		stream := a.streams[i]
		if stream == nil {
			continue
		}
		data := stream.Drain()
		if len(data) == 0 {
			continue
		}
		acc := append(a.tails[i], data...)
		if pct, ok := ExtractPercent(acc); ok {
			if a.sample.SetPercent(i, pct) {
				changed = true
			}
		}
		if len(acc) > tailBytes {
			acc = acc[len(acc)-tailBytes:]
		}
		a.tails[i] = append(a.tails[i][:0:0], acc...)
	}
	return changed
}

// Run polls until ctx ends, then performs one last poll so the final
// percentages are rendered.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.tick(true)
			return
		case <-ticker.C:
			a.tick(false)
		}
	}
}

func (a *Aggregator) tick(force bool) {
	if a.Poll() || force {
		if a.render != nil {
			a.render(a.sample.Snapshot())
		}
	}
}
