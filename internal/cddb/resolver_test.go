package cddb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"cd2md/internal/disc"
	"cd2md/internal/services"
)

func sampleDisc() disc.Disc {
	tracks := []disc.Track{
		{Ordinal: 1, StartSector: 0, SectorCount: 1000},
		{Ordinal: 2, StartSector: 1000, SectorCount: 1500},
		{Ordinal: 3, StartSector: 2500, SectorCount: 1500},
	}
	return disc.Disc{Tracks: tracks, Identifier: disc.DiscIdentifier(tracks)}
}

const readBody = "210 rock 10003503\r\nDTITLE=Artist / Album\r\nTTITLE0=One\r\nTTITLE1=Two\r\nTTITLE2=Three\r\n.\r\n"

type stubFetcher struct {
	query   string
	read    string
	queries int
	token   string
}

func (s *stubFetcher) Query(_ context.Context, q string) (string, error) {
	s.queries++
	return s.query, nil
}

func (s *stubFetcher) Read(_ context.Context, token string) (string, error) {
	s.token = token
	return s.read, nil
}

func TestResolverUsesChooser(t *testing.T) {
	f := &stubFetcher{
		query: "211 close matches\r\nrock 10003503 A / B\r\nblues 10003503 A / B live\r\n.\r\n",
		read:  readBody,
	}
	var offered []Choice
	r := NewResolver(f, WithChooser(func(c []Choice) (int, error) {
		offered = c
		return 1, nil
	}))

	titles, err := r.Resolve(context.Background(), sampleDisc())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(offered) != 2 || f.token != "blues+10003503" {
		t.Fatalf("chooser not honoured: offered=%v token=%q", offered, f.token)
	}
	if titles.Disc != "Artist - Album" || titles.Track(3) != "Three" || titles.Track(4) != "" {
		t.Fatalf("titles = %+v", titles)
	}
}

func TestResolverMiss(t *testing.T) {
	r := NewResolver(&stubFetcher{query: "202 No match\r\n"})
	_, err := r.Resolve(context.Background(), sampleDisc())
	if !errors.Is(err, ErrLookupMiss) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected lookup miss, got %v", err)
	}
}

func TestResolverCachesTitles(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "titles.json"), nil)
	f := &stubFetcher{query: "200 rock 10003503 Artist / Album\r\n", read: readBody}
	r := NewResolver(f, WithCache(cache))

	if _, err := r.Resolve(context.Background(), sampleDisc()); err != nil {
		t.Fatal(err)
	}
	titles, err := r.Resolve(context.Background(), sampleDisc())
	if err != nil {
		t.Fatal(err)
	}
	if f.queries != 1 {
		t.Fatalf("second resolve should hit the cache, queries=%d", f.queries)
	}
	if titles.Track(1) != "One" {
		t.Fatalf("cached titles = %+v", titles)
	}
}

func TestClientRequests(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RawQuery)
		if r.URL.Path != "/~cddb/cddb.cgi" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if strings.Contains(r.URL.RawQuery, "cddb+query") {
			_, _ = w.Write([]byte("200 rock 10003503 Artist / Album\r\n"))
			return
		}
		_, _ = w.Write([]byte(readBody))
	}))
	t.Cleanup(server.Close)

	client, err := New(server.URL+"/", "me@you.org+localhost+cd2md+0.1")
	if err != nil {
		t.Fatal(err)
	}
	titles, err := NewResolver(client).Resolve(context.Background(), sampleDisc())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if titles.Track(2) != "Two" {
		t.Fatalf("titles = %+v", titles)
	}
	if len(seen) != 2 {
		t.Fatalf("requests = %v", seen)
	}
	if seen[0] != "cmd=cddb+query+10003503+3+150+1150+2650+53&hello=me@you.org+localhost+cd2md+0.1&proto=6" {
		t.Errorf("query request = %q", seen[0])
	}
	if seen[1] != "cmd=cddb+read+rock+10003503&hello=me@you.org+localhost+cd2md+0.1&proto=6" {
		t.Errorf("read request = %q", seen[1])
	}
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, _ := New(server.URL, "a+b+c+d")
	if _, err := client.Query(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if _, err := New("", "x"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestCacheStoreListRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.json")
	cache := NewCache(path, nil)
	if err := cache.Store(CacheEntry{DiscID: "10003503", Disc: "A - B", Tracks: []string{"x"}}); err != nil {
		t.Fatal(err)
	}

	reloaded := NewCache(path, nil)
	if entry, ok := reloaded.Lookup("10003503"); !ok || entry.Disc != "A - B" {
		t.Fatalf("reloaded entry = %+v, %v", entry, ok)
	}
	if len(reloaded.List()) != 1 {
		t.Fatal("expected one listed entry")
	}
	if err := reloaded.Remove("10003503"); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Remove("10003503"); err == nil {
		t.Fatal("expected error removing a missing entry")
	}
	if err := reloaded.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewCache("", nil).Lookup("10003503"); ok {
		t.Fatal("disabled cache must not return entries")
	}
}
