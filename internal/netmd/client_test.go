package netmd_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cd2md/internal/netmd"
	"cd2md/internal/services"
	"cd2md/internal/subprocess"
)

type stubRunner struct {
	calls  []string
	output string
	err    error
}

func (s *stubRunner) Run(_ context.Context, binary string, args []string, sink io.Writer) error {
	s.calls = append(s.calls, binary+" "+strings.Join(args, " "))
	if s.err != nil {
		return s.err
	}
	if sink != nil {
		io.WriteString(sink, s.output)
		io.WriteString(sink, subprocess.CompletionToken)
	}
	return nil
}

func TestCommandLines(t *testing.T) {
	runner := &stubRunner{}
	client, err := netmd.New("netmd-cli", netmd.WithRunner(runner))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_ = client.Erase(ctx, io.Discard)
	_ = client.SetTitle(ctx, "Artist - Album", io.Discard)
	_ = client.Send(ctx, "/tmp/01.wav", "Song One", "sp", io.Discard)
	_ = client.Send(ctx, "/tmp/02.wav", "Song Two", "lp4", io.Discard)
	_ = client.Group(ctx, 12, "Album", io.Discard)

	want := []string{
		"netmd-cli -y erase_disc",
		"netmd-cli -y plain_title Artist - Album",
		"netmd-cli -y send /tmp/01.wav Song One",
		"netmd-cli -y -d lp4 send /tmp/02.wav Song Two",
		"netmd-cli -y group 12 Album",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("calls = %v", runner.calls)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i], want[i])
		}
	}
}

func TestVerboseFlag(t *testing.T) {
	runner := &stubRunner{}
	client, _ := netmd.New("netmd-cli", netmd.WithRunner(runner), netmd.WithVerbose(true))
	_ = client.Erase(context.Background(), io.Discard)
	if runner.calls[0] != "netmd-cli -y -v erase_disc" {
		t.Fatalf("call = %q", runner.calls[0])
	}
}

func TestInfoParsesReport(t *testing.T) {
	runner := &stubRunner{output: `{"Name":"Sony MZ-N710","OfLpEnc":false,"Disc":{"Name":"Old","TotSec":4800,"FreeSec":1200,"TCount":9,"Tracks":[{"No":1,"Name":"a","Length":"03:00","Enc":"SP"}]}}` + "\nsome trailing noise 100%"}
	client, _ := netmd.New("netmd-cli", netmd.WithRunner(runner))

	info, err := client.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if runner.calls[0] != "netmd-cli -y list_json" {
		t.Fatalf("call = %q", runner.calls[0])
	}
	if info.Name != "Sony MZ-N710" || info.OnTheFlyLP || info.Disc.TrackCount != 9 || info.Disc.Blank() {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(info.Disc.Tracks) != 1 || info.Disc.Tracks[0].Encoding != "SP" {
		t.Fatalf("tracks = %+v", info.Disc.Tracks)
	}
}

func TestInfoRejectsGarbage(t *testing.T) {
	client, _ := netmd.New("netmd-cli", netmd.WithRunner(&stubRunner{output: "no device found"}))
	if _, err := client.Info(context.Background()); !errors.Is(err, services.ErrDevice) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestRunFailureIsExternalToolError(t *testing.T) {
	runner := &stubRunner{err: &subprocess.ExitError{Binary: "netmd-cli", Code: 2}}
	client, _ := netmd.New("netmd-cli", netmd.WithRunner(runner))
	err := client.Send(context.Background(), "x.wav", "x", "sp", io.Discard)
	if !errors.Is(err, services.ErrExternalTool) || subprocess.ExitCode(err) != 2 {
		t.Fatalf("unexpected error %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("transfer failures are not fatal")
	}
}
