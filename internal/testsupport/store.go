package testsupport

import (
	"context"
	"testing"

	"cd2md/internal/config"
	"cd2md/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun starts a run for tests using the provided store.
func BeginRun(t testing.TB, store *history.Store, discID, title string) history.Run {
	t.Helper()

	run, err := store.BeginRun(context.Background(), history.Run{
		DiscID:       discID,
		DiscTitle:    title,
		TransferMode: config.ModeSP,
		ExternalMode: config.ModeNone,
	})
	if err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	return run
}
