package disc

import "testing"

func TestAddressToSector(t *testing.T) {
	tests := []struct {
		m, s, f uint8
		want    int64
	}{
		{0, 2, 0, 0},
		{0, 0, 0, -150},
		{1, 0, 0, 4350},
		{0, 15, 25, 1000},
	}
	for _, tt := range tests {
		if got := AddressToSector(tt.m, tt.s, tt.f); got != tt.want {
			t.Errorf("AddressToSector(%d,%d,%d) = %d, want %d", tt.m, tt.s, tt.f, got, tt.want)
		}
	}
}

func TestDigitSum(t *testing.T) {
	tests := map[uint64]int{0: 0, 7: 7, 2344: 13, 1000: 1, 99: 18}
	for in, want := range tests {
		if got := DigitSum(in); got != want {
			t.Errorf("DigitSum(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDiscIdentifier(t *testing.T) {
	tracks := sampleTracks()
	if got := DiscIdentifier(tracks); got != 0x10003503 {
		t.Fatalf("DiscIdentifier = %08x, want 10003503", got)
	}
	if DiscIdentifier(tracks) != DiscIdentifier(sampleTracks()) {
		t.Fatal("identifier not stable for identical layouts")
	}

	changed := sampleTracks()
	changed[2].SectorCount += 75
	if DiscIdentifier(changed) == DiscIdentifier(tracks) {
		t.Fatal("identifier should change when the layout changes")
	}
	if DiscIdentifier(nil) != 0 {
		t.Fatal("empty layout should yield zero")
	}
}

func sampleTracks() []Track {
	return []Track{
		{Ordinal: 1, StartSector: 0, SectorCount: 1000},
		{Ordinal: 2, StartSector: 1000, SectorCount: 1500},
		{Ordinal: 3, StartSector: 2500, SectorCount: 1500},
	}
}
