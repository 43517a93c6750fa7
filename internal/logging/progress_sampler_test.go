package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"zero uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"custom", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Fatalf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Fatalf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "rip 1/3") {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "rip 1/3", true},
		{10, "rip 1/3", false},
		{25, "rip 1/3", true},
		{49, "rip 1/3", false},
		{100, "rip 1/3", true},
		{100, "rip 1/3", false},
		{0, "rip 2/3", true},
		{-1, "rip 2/3", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d (%v%% %s): got %v want %v", i, step.percent, step.stage, got, step.want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "transfer 1/2")
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("reset did not clear state: %+v", s)
	}
	if !s.ShouldLog(50, "transfer 1/2") {
		t.Fatal("expected log after reset")
	}
}
