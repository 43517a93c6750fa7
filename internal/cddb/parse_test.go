package cddb

import (
	"reflect"
	"testing"

	"cd2md/internal/disc"
)

func TestBuildQuery(t *testing.T) {
	tracks := []disc.Track{
		{Ordinal: 1, StartSector: 0, SectorCount: 1000},
		{Ordinal: 2, StartSector: 1000, SectorCount: 1500},
		{Ordinal: 3, StartSector: 2500, SectorCount: 1500},
	}
	d := disc.Disc{Tracks: tracks, Identifier: disc.DiscIdentifier(tracks)}
	if got := BuildQuery(d); got != "10003503+3+150+1150+2650+53" {
		t.Fatalf("BuildQuery = %q", got)
	}
}

func TestParseChoicesExactMatch(t *testing.T) {
	got := ParseChoices("200 rock 10003503 Pink Floyd / The Wall\r\n")
	want := []Choice{{QueryToken: "rock+10003503", Description: "Pink Floyd / The Wall"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseChoices = %#v", got)
	}
}

func TestParseChoicesMultiple(t *testing.T) {
	resp := "210 Found exact matches, list follows (until terminating `.')\r\n" +
		"rock 10003503 Artist / Album\r\n" +
		"# comment\r\n" +
		"misc 10003503 Artist / Album (Deluxe)\r\n" +
		".\r\n"
	got := ParseChoices(resp)
	want := []Choice{
		{QueryToken: "rock+10003503", Description: "Artist / Album"},
		{QueryToken: "misc+10003503", Description: "Artist / Album (Deluxe)"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseChoices = %#v", got)
	}
	if got[0].Genre() != "Rock" {
		t.Fatalf("Genre = %q", got[0].Genre())
	}
}

func TestParseChoicesUnknownCode(t *testing.T) {
	for _, resp := range []string{"202 No match found\r\n", "garbage", ""} {
		if got := ParseChoices(resp); len(got) != 0 {
			t.Errorf("ParseChoices(%q) = %v", resp, got)
		}
	}
}

func TestParseTitles(t *testing.T) {
	resp := "210 rock 10003503 CD database entry follows (until terminating `.')\r\n" +
		"# xmcd\r\n" +
		"DISCID=10003503\r\n" +
		"DTITLE=Artist / Album\r\n" +
		"DYEAR=1999\r\n" +
		"TTITLE0=First\r\n" +
		"TTITLE1=Second part one \r\n" +
		"TTITLE1=and two\r\n" +
		"TTITLE2=\r\n" +
		".\r\n"
	got, found := ParseTitles(resp)
	if !found {
		t.Fatal("expected titles")
	}
	want := []string{"Artist - Album", "First", "Second part one and two", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTitles = %#v", got)
	}

	if _, found := ParseTitles("401 not found\r\n"); found {
		t.Fatal("expected not found")
	}
}

func TestParseTitlesReplacesSlashPerLine(t *testing.T) {
	resp := "210 rock 10003503 CD database entry follows\r\n" +
		"DTITLE=Artist / Long Album Name that wraps \r\n" +
		"DTITLE=onto a second line / Part Two\r\n" +
		"TTITLE0=A/B\r\n" +
		".\r\n"
	got, found := ParseTitles(resp)
	if !found {
		t.Fatal("expected titles")
	}
	want := []string{"Artist - Long Album Name that wraps onto a second line - Part Two", "A-B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTitles = %#v", got)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Die Ärzte - Schöne Grüße": "Die Aerzte - Schoene Gruesse",
		"Café del Mar":             "Cafe del Mar",
		"Straße\tder  Lieder":      "Strasse der Lieder",
		"Björk":                    "Bjoerk",
		"東京 Tokyo":                 "Tokyo",
	}
	for in, want := range tests {
		if got := NormalizeTitle(in); got != want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
