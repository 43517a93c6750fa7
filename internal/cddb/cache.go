package cddb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cd2md/internal/logging"
)

// CacheEntry is a resolved title set keyed by disc id.
type CacheEntry struct {
	DiscID     string    `json:"disc_id"`
	QueryToken string    `json:"query_token,omitempty"`
	Disc       string    `json:"disc"`
	Tracks     []string  `json:"tracks"`
	CachedAt   time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the title cache file.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache creates a cache backed by path. An empty path disables the cache
// (all operations become no-ops). The file is created lazily on first Store.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "title-cache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]CacheEntry),
	}
	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load title cache",
			logging.String(logging.FieldEventType, "title_cache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously resolved discs will be looked up again"))
	}
	return c
}

// Lookup returns the entry for discID.
func (c *Cache) Lookup(discID string) (CacheEntry, bool) {
	discID = strings.TrimSpace(discID)
	if c == nil || discID == "" || c.path == "" {
		return CacheEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, found := c.entries[discID]
	return entry, found
}

// Store adds or replaces an entry and persists the cache.
func (c *Cache) Store(entry CacheEntry) error {
	entry.DiscID = strings.TrimSpace(entry.DiscID)
	if entry.DiscID == "" {
		return errors.New("disc ID cannot be empty")
	}
	if c == nil || c.path == "" {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.DiscID] = entry
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached disc titles",
		logging.String(logging.FieldDiscID, entry.DiscID),
		logging.String("title", entry.Disc),
		logging.Int("tracks", len(entry.Tracks)))
	return nil
}

// Remove deletes the entry for discID.
func (c *Cache) Remove(discID string) error {
	discID = strings.TrimSpace(discID)
	if discID == "" {
		return errors.New("disc ID cannot be empty")
	}
	if c == nil || c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[discID]; !exists {
		return fmt.Errorf("disc ID %q not found in cache", discID)
	}
	delete(c.entries, discID)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// List returns all entries, newest first.
func (c *Cache) List() []CacheEntry {
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil || c.path == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]CacheEntry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	c.entries = make(map[string]CacheEntry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.DiscID) != "" {
			c.entries[entry.DiscID] = entry
		}
	}
	return nil
}

// save writes the cache atomically via a temp file.
func (c *Cache) save() error {
	entries := make([]CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sortEntries(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func sortEntries(entries []CacheEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].DiscID < entries[j].DiscID
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
}
