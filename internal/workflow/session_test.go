package workflow_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"cd2md/internal/cddb"
	"cd2md/internal/config"
	"cd2md/internal/disc"
	"cd2md/internal/history"
	"cd2md/internal/netmd"
	"cd2md/internal/services"
	"cd2md/internal/testsupport"
	"cd2md/internal/workflow"
)

type fakeDrive struct {
	mu       sync.Mutex
	locked   bool
	ejected  bool
	unlocked bool
}

func (f *fakeDrive) Open(context.Context) (disc.Disc, error) {
	return disc.Build([]disc.TOCEntry{
		{Minutes: 0, Seconds: 2, Frames: 0},
		{Minutes: 0, Seconds: 15, Frames: 25},
		{Minutes: 0, Seconds: 35, Frames: 25},
		{Minutes: 0, Seconds: 55, Frames: 25},
	})
}

func (f *fakeDrive) ReadRawSectors(_ context.Context, _ int64, sectors int) ([]byte, error) {
	return make([]byte, sectors*disc.RawSectorBytes), nil
}

func (f *fakeDrive) Lock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = true
	return nil
}

func (f *fakeDrive) Unlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked = true
	return nil
}

func (f *fakeDrive) Eject() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ejected = true
	return nil
}

func (f *fakeDrive) Close() error { return nil }

type fakeMD struct {
	mu     sync.Mutex
	info   netmd.DeviceInfo
	calls  []string
	titles []string
	modes  []string
}

func (f *fakeMD) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeMD) Info(context.Context) (netmd.DeviceInfo, error) {
	f.record("info")
	return f.info, nil
}

func (f *fakeMD) Erase(context.Context, io.Writer) error {
	f.record("erase")
	return nil
}

func (f *fakeMD) SetTitle(_ context.Context, title string, _ io.Writer) error {
	f.record("title:" + title)
	return nil
}

func (f *fakeMD) Send(_ context.Context, _ string, title, mode string, _ io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, "send")
	f.titles = append(f.titles, title)
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	return nil
}

func (f *fakeMD) Group(_ context.Context, last int, title string, _ io.Writer) error {
	f.record("group:" + title + ":" + string(rune('0'+last)))
	return nil
}

func (f *fakeMD) has(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeEncoder struct {
	mu    sync.Mutex
	modes []string
}

func (f *fakeEncoder) Encode(_ context.Context, _ string, mode string, _ io.Writer) error {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	return nil
}

type fakeLookup struct {
	titles cddb.Titles
	err    error
}

func (f fakeLookup) Resolve(context.Context, disc.Disc) (cddb.Titles, error) {
	return f.titles, f.err
}

func blankMD(lp bool) *fakeMD {
	return &fakeMD{info: netmd.DeviceInfo{
		Name:       "Sony MZ-N707",
		OnTheFlyLP: lp,
		Disc:       netmd.DiscInfo{TotalSeconds: 4800, FreeSeconds: 4800},
	}}
}

func newSession(t *testing.T, cfg *config.Config, drive disc.Reader, md workflow.MiniDisc, opts ...workflow.Option) *workflow.Session {
	t.Helper()
	opts = append([]workflow.Option{workflow.WithStatusOutput(io.Discard)}, opts...)
	s, err := workflow.New(cfg, drive, md, opts...)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return s
}

func TestRunBlankDiscSP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	drive := &fakeDrive{}
	md := blankMD(true)
	lookup := fakeLookup{titles: cddb.Titles{Disc: "Artist - Album", Tracks: []string{"One", "Two", "Three"}}}

	s := newSession(t, cfg, drive, md, workflow.WithLookup(lookup), workflow.WithHistory(store))
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Transferred != 3 || res.Summary.Failed() {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if res.Append {
		t.Fatal("blank disc must not be appended")
	}
	if !md.has("erase") || !md.has("title:Artist - Album") {
		t.Fatalf("expected erase and title, got %v", md.calls)
	}
	if md.has("group") {
		t.Fatal("SP runs must not group")
	}
	if strings.Join(md.titles, ",") != "One,Two,Three" {
		t.Fatalf("unexpected transfer order: %v", md.titles)
	}
	if !drive.locked || !drive.unlocked {
		t.Fatal("expected tray lock and unlock")
	}
	if drive.ejected {
		t.Fatal("eject disabled in test config")
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.StatusCompleted || run.Transferred != 3 || run.DiscID != "10003503" {
		t.Fatalf("unexpected history run: %+v", run)
	}
	tracks, err := store.Tracks(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("Tracks: %v", err)
	}
	if len(tracks) != 3 || !tracks[2].Transferred || tracks[2].Title != "Three" {
		t.Fatalf("unexpected track records: %+v", tracks)
	}
}

func TestRunLPFallbackGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModes(config.ModeLP2, config.ModeNone))
	cfg.Drive.EjectWhenDone = true
	drive := &fakeDrive{}
	md := blankMD(false)
	enc := &fakeEncoder{}
	lookup := fakeLookup{titles: cddb.Titles{Disc: "Artist - Album (Deluxe)", Tracks: []string{"a", "b", "c"}}}

	s := newSession(t, cfg, drive, md, workflow.WithEncoder(enc), workflow.WithLookup(lookup))
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Modes.Fallback || res.Modes.External != config.ModeLP2 || res.Modes.Transfer != config.ModeSP {
		t.Fatalf("unexpected modes: %+v", res.Modes)
	}
	if len(enc.modes) != 3 || enc.modes[0] != config.ModeLP2 {
		t.Fatalf("unexpected encoder calls: %v", enc.modes)
	}
	for _, m := range md.modes {
		if m != config.ModeSP {
			t.Fatalf("pre-encoded tracks must be sent as sp, got %q", m)
		}
	}
	if !md.has("title:") || md.has("title:Artist") {
		t.Fatalf("LP runs with grouping keep a blank disc title: %v", md.calls)
	}
	if !md.has("group:Album:3") {
		t.Fatalf("expected group over 3 tracks, got %v", md.calls)
	}
	if !drive.ejected {
		t.Fatal("expected eject after extraction")
	}
}

func TestRunLPWithoutEncoderFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModes(config.ModeLP4, config.ModeNone))
	md := blankMD(false)

	_, err := newSession(t, cfg, &fakeDrive{}, md).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if md.has("erase") {
		t.Fatal("nothing may be written before the plan is valid")
	}
}

func TestRunAppendsWhenDeciderSaysSo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	md := &fakeMD{info: netmd.DeviceInfo{
		OnTheFlyLP: true,
		Disc:       netmd.DiscInfo{TotalSeconds: 4800, FreeSeconds: 600, TrackCount: 5},
	}}
	var asked bool
	decide := func(info netmd.DiscInfo) (workflow.EraseDecision, error) {
		asked = true
		if info.TrackCount != 5 {
			t.Errorf("decider saw %d tracks", info.TrackCount)
		}
		return workflow.DecisionAppend, nil
	}

	res, err := newSession(t, cfg, &fakeDrive{}, md, workflow.WithDecider(decide)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !asked || !res.Append {
		t.Fatalf("expected decider to choose append (asked=%v append=%v)", asked, res.Append)
	}
	if md.has("erase") || md.has("title:") {
		t.Fatalf("append must not erase or retitle: %v", md.calls)
	}
}

func TestRunAbortDecision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	md := &fakeMD{info: netmd.DeviceInfo{Disc: netmd.DiscInfo{TotalSeconds: 4800, FreeSeconds: 100, TrackCount: 2}}}
	decide := func(netmd.DiscInfo) (workflow.EraseDecision, error) { return workflow.DecisionAbort, nil }

	_, err := newSession(t, cfg, &fakeDrive{}, md, workflow.WithDecider(decide)).Run(context.Background())
	if !errors.Is(err, services.ErrAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
}

func TestRunErasePolicyWithoutDecider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	md := &fakeMD{info: netmd.DeviceInfo{Disc: netmd.DiscInfo{TotalSeconds: 4800, FreeSeconds: 100, TrackCount: 2}}}

	_, err := newSession(t, cfg, &fakeDrive{}, md).Run(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	cfg.Transfer.ErasePolicy = config.ErasePolicyErase
	if _, err := newSession(t, cfg, &fakeDrive{}, md).Run(context.Background()); err != nil {
		t.Fatalf("erase policy run: %v", err)
	}
	if !md.has("erase") {
		t.Fatal("expected erase policy to erase the MD")
	}
}

func TestRunCapacityCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transfer.Append = true
	md := &fakeMD{info: netmd.DeviceInfo{Disc: netmd.DiscInfo{TotalSeconds: 4800, FreeSeconds: 30, TrackCount: 9}}}

	_, err := newSession(t, cfg, &fakeDrive{}, md).Run(context.Background())
	var capErr *netmd.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if capErr.NeedSeconds != 53 || capErr.HaveSeconds != 30 {
		t.Fatalf("unexpected capacity figures: %+v", capErr)
	}
	if md.has("send") {
		t.Fatal("nothing may be sent when the disc does not fit")
	}
}

func TestRunLookupMissConfirm(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	miss := fakeLookup{err: cddb.ErrLookupMiss}

	decline := func(string) (bool, error) { return false, nil }
	_, err := newSession(t, cfg, &fakeDrive{}, blankMD(true), workflow.WithLookup(miss), workflow.WithConfirm(decline)).Run(context.Background())
	if !errors.Is(err, services.ErrAborted) {
		t.Fatalf("expected abort after declined confirm, got %v", err)
	}

	accept := func(string) (bool, error) { return true, nil }
	md := blankMD(true)
	res, err := newSession(t, cfg, &fakeDrive{}, md, workflow.WithLookup(miss), workflow.WithConfirm(accept)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Titles.Disc != "" || len(res.Titles.Tracks) != 3 {
		t.Fatalf("expected blank titles, got %+v", res.Titles)
	}
	if !md.has("title:") {
		t.Fatalf("expected blank title to be set: %v", md.calls)
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(cfg.LockPath())
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	md := blankMD(true)
	_, err := newSession(t, cfg, &fakeDrive{}, md).Run(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	if md.has("info") {
		t.Fatal("MiniDisc must not be touched without the lock")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := workflow.New(cfg, nil, blankMD(true)); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
