package progress

import "testing"

func TestExtractPercent(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"  45% done", 45, true},
		{"no number here", 0, false},
		{"100%\n", 100, true},
		{"1%...99%", 99, true},
		{"progress: %", 0, false},
		{"Writing 12% [====] 3.2 MiB/s", 12, true},
		{"", 0, false},
		{" 100% \n", 100, true},
	}
	for _, tt := range tests {
		got, ok := ExtractPercent([]byte(tt.in))
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ExtractPercent(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
