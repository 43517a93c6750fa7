package progress

import "sync/atomic"

// Stage identifies one pipeline stage.
type Stage int

const (
	StageRip Stage = iota
	StageEncode
	StageTransfer
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageRip:
		return "rip"
	case StageEncode:
		return "encode"
	case StageTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Sample holds per-stage percentages and the track each stage is working
// on. Percentages are written by Aggregator; track ordinals by the pipeline.
type Sample struct {
	percent [stageCount]atomic.Int32
	track   [stageCount]atomic.Int32
	total   atomic.Int32
}

// Snapshot is a point-in-time copy of a Sample.
type Snapshot struct {
	Total   int
	Percent [3]int
	Track   [3]int
}

// SetTotal records the number of tracks on the disc.
func (s *Sample) SetTotal(n int) { s.total.Store(int32(n)) }

// SetTrack records the track a stage has started.
func (s *Sample) SetTrack(stage Stage, ordinal int) { s.track[stage].Store(int32(ordinal)) }

// SetPercent stores pct for stage and reports whether it changed.
func (s *Sample) SetPercent(stage Stage, pct int) bool {
	return s.percent[stage].Swap(int32(pct)) != int32(pct)
}

// Snapshot copies the current values.
func (s *Sample) Snapshot() Snapshot {
	snap := Snapshot{Total: int(s.total.Load())}
	for i := Stage(0); i < stageCount; i++ {
		snap.Percent[i] = int(s.percent[i].Load())
		snap.Track[i] = int(s.track[i].Load())
	}
	return snap
}
