package disc

import (
	"errors"
	"testing"

	"cd2md/internal/services"
)

func sampleEntries() []TOCEntry {
	return []TOCEntry{
		{0, 2, 0},
		{0, 15, 25},
		{0, 35, 25},
		{0, 55, 25},
	}
}

func TestBuild(t *testing.T) {
	d, err := Build(sampleEntries())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(d.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(d.Tracks))
	}
	wantLens := []uint64{1000, 1500, 1500}
	wantSecs := []uint64{13, 20, 20}
	for i, tr := range d.Tracks {
		if tr.Ordinal != i+1 {
			t.Errorf("track %d ordinal = %d", i, tr.Ordinal)
		}
		if tr.SectorCount != wantLens[i] {
			t.Errorf("track %d length = %d, want %d", i+1, tr.SectorCount, wantLens[i])
		}
		if tr.DurationSeconds() != wantSecs[i] {
			t.Errorf("track %d seconds = %d, want %d", i+1, tr.DurationSeconds(), wantSecs[i])
		}
	}
	if d.TotalSeconds() != 53 {
		t.Errorf("TotalSeconds = %d, want 53", d.TotalSeconds())
	}
	if d.TotalBytes() != 4000*RawSectorBytes {
		t.Errorf("TotalBytes = %d", d.TotalBytes())
	}
	if d.HexID() != "10003503" {
		t.Errorf("HexID = %s", d.HexID())
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ErrEmptyDisc) {
		t.Fatalf("expected ErrEmptyDisc, got %v", err)
	}
	if _, err := Build([]TOCEntry{{0, 2, 0}}); !errors.Is(err, ErrEmptyDisc) {
		t.Fatalf("lead-out only should be empty, got %v", err)
	}
}

func TestBuildRejectsBadLayout(t *testing.T) {
	entries := []TOCEntry{{0, 15, 25}, {0, 2, 0}}
	_, err := Build(entries)
	if err == nil {
		t.Fatal("expected error for descending addresses")
	}
	if !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("device errors must be fatal")
	}
}
