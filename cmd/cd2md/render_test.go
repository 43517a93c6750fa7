package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/history"
	"cd2md/internal/netmd"
	"cd2md/internal/testsupport"
)

func sampleDisc(t *testing.T) disc.Disc {
	t.Helper()
	d, err := disc.Build([]disc.TOCEntry{
		{Minutes: 0, Seconds: 2, Frames: 0},
		{Minutes: 0, Seconds: 15, Frames: 25},
		{Minutes: 0, Seconds: 35, Frames: 25},
		{Minutes: 0, Seconds: 55, Frames: 25},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return d
}

func TestRenderTOC(t *testing.T) {
	out := renderTOC(sampleDisc(t))
	requireContains(t, out, "Disc ID: 10003503")
	requireContains(t, out, "Query:   10003503+3+150+1150+2650+53")
	requireContains(t, out, "0:13")
	requireContains(t, out, "0:53")
}

func TestTOCView(t *testing.T) {
	view := tocView(sampleDisc(t))
	if view.DiscID != "10003503" || len(view.Tracks) != 3 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Tracks[1].StartSector != 1000 || view.Tracks[1].Bytes != 1500*2352 {
		t.Fatalf("unexpected track view: %+v", view.Tracks[1])
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Disc", statusOK, "ready", false)
	if got != "  Disc:          [OK] ready" {
		t.Fatalf("unexpected status line %q", got)
	}
	colored := renderStatusLine("Disc", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored line, got %q", colored)
	}
}

func TestStatusKinds(t *testing.T) {
	counts := []struct {
		done, total int
		want        statusKind
	}{
		{3, 3, statusOK},
		{2, 3, statusWarn},
		{0, 3, statusError},
		{0, 0, statusOK},
	}
	for _, tc := range counts {
		if got := trackCountKind(tc.done, tc.total); got != tc.want {
			t.Errorf("trackCountKind(%d, %d) = %v, want %v", tc.done, tc.total, got, tc.want)
		}
	}
	runs := map[history.Status]statusKind{
		history.StatusCompleted: statusOK,
		history.StatusPartial:   statusWarn,
		history.StatusRunning:   statusWarn,
		history.StatusFailed:    statusError,
		history.StatusAborted:   statusError,
	}
	for status, want := range runs {
		if got := runStatusKind(status); got != want {
			t.Errorf("runStatusKind(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestRenderDeviceInfo(t *testing.T) {
	info := netmd.DeviceInfo{
		Name:       "Sony MZ-N707",
		OnTheFlyLP: true,
		Disc: netmd.DiscInfo{
			Name:         "Mix",
			TotalSeconds: 4800,
			FreeSeconds:  4000,
			TrackCount:   1,
			Groups:       []netmd.GroupInfo{{Name: "Album", Tracks: []netmd.TrackInfo{{Number: 1}}}},
			Tracks:       []netmd.TrackInfo{{Number: 1, Name: "One", Length: "03:10", Encoding: "LP2"}},
		},
	}
	out := renderDeviceInfo(info, false)
	requireContains(t, out, "Sony MZ-N707")
	requireContains(t, out, "01h 20m 00s total, 01h 06m 40s free (SP)")
	requireContains(t, out, "Album")
	requireContains(t, out, "LP2")
}

func TestApplyRipFlags(t *testing.T) {
	base := config.Default()
	cmd := &cobra.Command{}
	var flags ripFlags
	cmd.Flags().BoolVar(&flags.appendTracks, "append", false, "")
	cmd.Flags().BoolVar(&flags.noCDDB, "no-cddb", false, "")
	cmd.Flags().BoolVar(&flags.noGroup, "no-group", false, "")
	cmd.Flags().StringVarP(&flags.transferMode, "encode", "e", "", "")
	cmd.Flags().StringVarP(&flags.externalMode, "ext-encode", "x", "", "")
	cmd.Flags().StringVarP(&flags.device, "device", "d", "", "")
	cmd.Flags().BoolVar(&flags.keepTemp, "keep-temp", false, "")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "")
	if err := cmd.ParseFlags([]string{"--append", "--no-cddb", "-e", "LP2", "-d", "/dev/sr1"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg, err := applyRipFlags(cmd, &base, flags)
	if err != nil {
		t.Fatalf("applyRipFlags: %v", err)
	}
	if !cfg.Transfer.Append || cfg.Lookup.Enabled || cfg.Encoding.TransferMode != config.ModeLP2 || cfg.Drive.Device != "/dev/sr1" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.Transfer.Group {
		t.Fatal("unset flags must keep config values")
	}
	if base.Transfer.Append {
		t.Fatal("base config must not be mutated")
	}

	if err := cmd.ParseFlags([]string{"-x", "lp3"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if _, err := applyRipFlags(cmd, &base, flags); err == nil {
		t.Fatal("expected invalid external mode to be rejected")
	}
}

func TestDepsCommandReportsMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, []string{"deps"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected missing netmd-cli to fail")
	}
	requireContains(t, err.Error(), "netmd-cli")
	requireContains(t, out, "Dependencies")
}

func TestDepsCommandAllPresent(t *testing.T) {
	node := filepath.Join(t.TempDir(), "sr0")
	if err := os.WriteFile(node, nil, 0o644); err != nil {
		t.Fatalf("write node: %v", err)
	}
	env := setupCLITestEnv(t, testsupport.WithDevice(node), testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"deps"}, env.configPath, "")
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "netmd-cli")
	requireContains(t, out, node)
}
