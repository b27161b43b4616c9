package transcriptcache

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/transcript"
)

// ErrNotFound is returned when removing a fingerprint that is not cached.
var ErrNotFound = errors.New("fingerprint not found in cache")

// Entry is one cached transcription.
type Entry struct {
	Fingerprint string                `json:"fingerprint"`
	Filename    string                `json:"filename"`
	Transcript  transcript.Transcript `json:"transcript"`
	Metadata    transcript.Metadata   `json:"metadata"`
	CachedAt    time.Time             `json:"cachedAt"`
}

// Summary describes an entry without its segments.
type Summary struct {
	Fingerprint  string    `json:"fingerprint"`
	Filename     string    `json:"filename"`
	Duration     float64   `json:"duration"`
	CachedAt     time.Time `json:"cachedAt"`
	SegmentCount int       `json:"segmentCount"`
}

// Stats lists every entry, newest first.
type Stats struct {
	TotalEntries int       `json:"totalEntries"`
	Entries      []Summary `json:"entries"`
}

// Store persists the full entry map.
type Store interface {
	Load() (map[string]Entry, error)
	Save(entries map[string]Entry) error
	Location() string
	Close() error
}

// Cache provides thread-safe access to cached transcripts.
type Cache struct {
	store   Store
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]Entry // keyed by fingerprint
}

// New loads the cache from store. A load failure is logged and the cache
// starts empty.
func New(store Store, logger *slog.Logger) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	logger = logging.NewComponentLogger(logger, "transcriptcache")

	c := &Cache{
		store:   store,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]Entry),
	}

	loaded, err := store.Load()
	if err != nil {
		logging.WarnWithContext(logger, "failed to load transcript cache", "transcriptcache_load_failed",
			logging.Error(err),
			logging.String("location", store.Location()),
			logging.String(logging.FieldErrorHint, "cache will start empty; the next write replaces the stored data"),
			logging.String(logging.FieldImpact, "previously cached transcripts will be transcribed again"))
		return c
	}
	for fp, entry := range loaded {
		if ValidFingerprint(fp) {
			entry.Fingerprint = fp
			c.entries[fp] = entry
		}
	}
	logger.Debug("loaded transcript cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("location", store.Location()))
	return c
}

// Open builds the cache described by cfg. A disabled cache is memory-only.
func Open(cfg *config.Config, logger *slog.Logger) (*Cache, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return New(store, logger), nil
}

// Verify opens the configured store and reads it without building a cache,
// returning the stored entry count.
func Verify(cfg *config.Config) (int, error) {
	store, err := openStore(cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	entries, err := store.Load()
	if err != nil {
		return 0, services.Wrap(services.ErrCacheIO, "cache", "load", "Transcript cache is unreadable", err)
	}
	return len(entries), nil
}

func openStore(cfg *config.Config) (Store, error) {
	if cfg == nil || !cfg.Cache.Enabled {
		return NewMemoryStore(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendSQLite:
		store, err := OpenSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, services.Wrap(services.ErrCacheIO, "cache", "open sqlite", "Failed to open transcript cache database", err)
		}
		return store, nil
	case config.CacheBackendJSON, "":
		return NewJSONStore(cfg.Cache.Path), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cache", "select backend", fmt.Sprintf("Unsupported cache backend %q", cfg.Cache.Backend), nil)
	}
}

// Get returns the entry for fingerprint if present.
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[fingerprint]
	return entry, found
}

// Put stores or replaces the entry for fingerprint and persists the cache.
// The entry stays in memory even when persisting fails.
func (c *Cache) Put(fingerprint, filename string, result transcript.Transcript, meta transcript.Metadata) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return services.Wrap(services.ErrValidation, "cache", "put", "Fingerprint cannot be empty", nil)
	}

	entry := Entry{
		Fingerprint: fingerprint,
		Filename:    filename,
		Transcript:  result,
		Metadata:    meta,
		CachedAt:    c.now().UTC(),
	}
	// Stored metadata describes the original run.
	entry.Metadata.FromCache = false
	entry.Metadata.CachedAt = nil

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = entry
	if err := c.store.Save(c.snapshot()); err != nil {
		return services.Wrap(services.ErrCacheIO, "cache", "persist", "Failed to write transcript cache", err)
	}

	c.logger.Debug("cached transcript",
		logging.String("fingerprint", fingerprint),
		logging.String("filename", filename),
		logging.Int("segment_count", len(result.Segments)))
	return nil
}

// Remove deletes one entry and persists the change.
func (c *Cache) Remove(fingerprint string) error {
	fingerprint = strings.TrimSpace(fingerprint)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; !exists {
		return fmt.Errorf("%w: %q", ErrNotFound, fingerprint)
	}
	delete(c.entries, fingerprint)

	if err := c.store.Save(c.snapshot()); err != nil {
		return services.Wrap(services.ErrCacheIO, "cache", "persist", "Failed to write transcript cache", err)
	}
	c.logger.Debug("removed transcript from cache", logging.String("fingerprint", fingerprint))
	return nil
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if err := c.store.Save(c.snapshot()); err != nil {
		return services.Wrap(services.ErrCacheIO, "cache", "persist", "Failed to write transcript cache", err)
	}
	c.logger.Info("cleared transcript cache")
	return nil
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// List returns all entries sorted by CachedAt descending (newest first).
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].Fingerprint < entries[j].Fingerprint
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

// Stats summarises the cache contents.
func (c *Cache) Stats() Stats {
	entries := c.List()
	stats := Stats{TotalEntries: len(entries), Entries: make([]Summary, 0, len(entries))}
	for _, entry := range entries {
		stats.Entries = append(stats.Entries, Summary{
			Fingerprint:  entry.Fingerprint,
			Filename:     entry.Filename,
			Duration:     entry.Metadata.DurationSeconds,
			CachedAt:     entry.CachedAt,
			SegmentCount: len(entry.Transcript.Segments),
		})
	}
	return stats
}

// Resolve finds an entry by 1-based position in List order or by
// fingerprint prefix. Prefixes must be unambiguous.
func (c *Cache) Resolve(ref string) (Entry, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return Entry{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	entries := c.List()
	if n, ok := parsePosition(ref); ok {
		if n < 1 || n > len(entries) {
			return Entry{}, fmt.Errorf("%w: no entry #%d (cache holds %d)", ErrNotFound, n, len(entries))
		}
		return entries[n-1], nil
	}
	return findPrefix(entries, ref)
}

// FindPrefix finds the entry whose fingerprint starts with prefix. Prefixes
// must be unambiguous.
func (c *Cache) FindPrefix(prefix string) (Entry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return Entry{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	return findPrefix(c.List(), prefix)
}

func findPrefix(entries []Entry, ref string) (Entry, error) {
	var match *Entry
	for i := range entries {
		if strings.HasPrefix(entries[i].Fingerprint, ref) {
			if match != nil {
				return Entry{}, fmt.Errorf("fingerprint prefix %q is ambiguous", ref)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return *match, nil
}

// Location describes where the cache persists.
func (c *Cache) Location() string {
	return c.store.Location()
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) snapshot() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for fp, entry := range c.entries {
		out[fp] = entry
	}
	return out
}

func parsePosition(ref string) (int, bool) {
	if len(ref) == 0 || len(ref) > 6 {
		return 0, false
	}
	n := 0
	for _, r := range ref {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
