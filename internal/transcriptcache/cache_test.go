package transcriptcache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/services"
	"captionsync/internal/transcript"
)

func sampleTranscript() transcript.Transcript {
	return transcript.Transcript{
		Text:     "Hello there.",
		Language: "english",
		Segments: []transcript.Segment{{
			ID: 0, Start: 0, End: 1.5, Text: " Hello there.",
			Tokens: []int64{50364, 2425}, AvgLogprob: -0.25, CompressionRatio: 1.1, NoSpeechProb: 0.02,
		}},
	}
}

func fixedClock(c *Cache, ts time.Time) {
	c.now = func() time.Time { return ts }
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 || !ValidFingerprint(a) {
		t.Fatalf("unexpected fingerprint %q", a)
	}
	if a == Fingerprint([]byte("other bytes")) {
		t.Fatal("different content should differ")
	}
	// SHA-256 of the empty input.
	if got := Fingerprint(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty fingerprint %s", got)
	}
}

func TestFingerprintFileMatchesBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.mp4")
	data := []byte("video-bytes")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	if got != Fingerprint(data) {
		t.Fatalf("file fingerprint %s differs from byte fingerprint", got)
	}
}

func TestJSONCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "transcripts.json")
	cache := New(NewJSONStore(path), nil)
	fp := Fingerprint([]byte("video"))
	meta := transcript.NewMetadata(90, 10*1024*1024, 1024*1024, false)

	if err := cache.Put(fp, "clip.mp4", sampleTranscript(), meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	reopened := New(NewJSONStore(path), nil)
	entry, ok := reopened.Get(fp)
	if !ok {
		t.Fatal("expected entry after reopening")
	}
	if entry.Filename != "clip.mp4" || entry.Fingerprint != fp {
		t.Fatalf("unexpected entry %+v", entry)
	}
	seg := entry.Transcript.Segments[0]
	if seg.Text != " Hello there." || seg.AvgLogprob != -0.25 || len(seg.Tokens) != 2 {
		t.Fatalf("segment not preserved: %+v", seg)
	}
	if entry.Metadata.DurationMinutes != 1.5 || entry.CachedAt.IsZero() {
		t.Fatalf("unexpected metadata %+v cachedAt %v", entry.Metadata, entry.CachedAt)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") || !strings.Contains(string(data), `"`+fp+`"`) {
		t.Fatalf("expected JSON object keyed by fingerprint, got %s", data)
	}
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	cache := New(store, nil)
	fp := Fingerprint([]byte("video"))
	if err := cache.Put(fp, "clip.mp4", sampleTranscript(), transcript.Metadata{DurationSeconds: 90}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened := New(store, nil)
	defer reopened.Close()

	entry, ok := reopened.Get(fp)
	if !ok || entry.Transcript.Segments[0].CompressionRatio != 1.1 {
		t.Fatalf("expected entry after reopening, got %+v %v", entry, ok)
	}
	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if reopened.Count() != 0 {
		t.Fatalf("expected empty cache, got %d", reopened.Count())
	}
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	cache := New(NewMemoryStore(), nil)
	fp := Fingerprint([]byte("video"))
	if err := cache.Put(fp, "first.mp4", sampleTranscript(), transcript.Metadata{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(fp, "second.mp4", transcript.Transcript{Text: "new"}, transcript.Metadata{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, _ := cache.Get(fp)
	if entry.Filename != "second.mp4" || entry.Transcript.Text != "new" || cache.Count() != 1 {
		t.Fatalf("expected overwrite, got %+v", entry)
	}
}

func TestPutClearsRunOnlyMetadata(t *testing.T) {
	cache := New(NewMemoryStore(), nil)
	now := time.Now()
	fp := Fingerprint([]byte("x"))
	if err := cache.Put(fp, "x.mp4", sampleTranscript(), transcript.Metadata{FromCache: true, CachedAt: &now}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, _ := cache.Get(fp)
	if entry.Metadata.FromCache || entry.Metadata.CachedAt != nil {
		t.Fatalf("stored metadata should describe the original run, got %+v", entry.Metadata)
	}
}

func TestCorruptJSONStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cache := New(NewJSONStore(path), nil)
	if cache.Count() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Count())
	}
	if _, ok := cache.Get(Fingerprint([]byte("anything"))); ok {
		t.Fatal("expected miss")
	}

	fp := Fingerprint([]byte("video"))
	if err := cache.Put(fp, "clip.mp4", sampleTranscript(), transcript.Metadata{}); err != nil {
		t.Fatalf("Put should replace the corrupt document: %v", err)
	}
	if reopened := New(NewJSONStore(path), nil); reopened.Count() != 1 {
		t.Fatalf("expected rewritten cache to load, got %d entries", reopened.Count())
	}
}

func TestPutFailureKeepsEntryInMemory(t *testing.T) {
	store := NewMemoryStore()
	store.SaveErr = errors.New("disk full")
	cache := New(store, nil)
	fp := Fingerprint([]byte("video"))

	err := cache.Put(fp, "clip.mp4", sampleTranscript(), transcript.Metadata{})
	if !errors.Is(err, services.ErrCacheIO) {
		t.Fatalf("expected ErrCacheIO, got %v", err)
	}
	if _, ok := cache.Get(fp); !ok {
		t.Fatal("entry should remain available in memory")
	}
}

func TestStatsNewestFirst(t *testing.T) {
	cache := New(NewMemoryStore(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.mp4", "mid.mp4", "new.mp4"} {
		fixedClock(cache, base.Add(time.Duration(i)*time.Hour))
		meta := transcript.Metadata{DurationSeconds: float64(100 * (i + 1))}
		if err := cache.Put(Fingerprint([]byte(name)), name, sampleTranscript(), meta); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	stats := cache.Stats()
	if stats.TotalEntries != 3 || len(stats.Entries) != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Entries[0].Filename != "new.mp4" || stats.Entries[2].Filename != "old.mp4" {
		t.Fatalf("expected newest first, got %+v", stats.Entries)
	}
	if stats.Entries[0].Duration != 300 || stats.Entries[0].SegmentCount != 1 {
		t.Fatalf("unexpected summary %+v", stats.Entries[0])
	}
}

func TestRemoveAndResolve(t *testing.T) {
	cache := New(NewMemoryStore(), nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fpA := Fingerprint([]byte("a"))
	fpB := Fingerprint([]byte("b"))
	fixedClock(cache, base)
	_ = cache.Put(fpA, "a.mp4", sampleTranscript(), transcript.Metadata{})
	fixedClock(cache, base.Add(time.Minute))
	_ = cache.Put(fpB, "b.mp4", sampleTranscript(), transcript.Metadata{})

	entry, err := cache.Resolve("1")
	if err != nil || entry.Fingerprint != fpB {
		t.Fatalf("expected newest entry for #1, got %+v %v", entry, err)
	}
	entry, err = cache.Resolve(fpA[:12])
	if err != nil || entry.Fingerprint != fpA {
		t.Fatalf("expected prefix match, got %+v %v", entry, err)
	}
	if _, err := cache.Resolve("9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for #9, got %v", err)
	}

	if err := cache.Remove(fpA); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := cache.Remove(fpA); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
	if cache.Count() != 1 {
		t.Fatalf("expected one entry left, got %d", cache.Count())
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Cache.Enabled = false
	cache, err := Open(&cfg, nil)
	if err != nil || cache.Location() != "memory" {
		t.Fatalf("expected memory cache when disabled, got %v %v", cache, err)
	}

	cfg = config.Default()
	cfg.Cache.Path = filepath.Join(dir, "t.json")
	cache, err = Open(&cfg, nil)
	if err != nil || cache.Location() != cfg.Cache.Path {
		t.Fatalf("expected json cache, got %v %v", cache, err)
	}

	cfg.Cache.Backend = config.CacheBackendSQLite
	cfg.Cache.Path = filepath.Join(dir, "t.db")
	cache, err = Open(&cfg, nil)
	if err != nil || cache.Location() != cfg.Cache.Path {
		t.Fatalf("expected sqlite cache, got %v %v", cache, err)
	}
	_ = cache.Close()

	cfg.Cache.Backend = "redis"
	if _, err := Open(&cfg, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache := New(NewJSONStore(filepath.Join(t.TempDir(), "t.json")), nil)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			fp := Fingerprint([]byte{byte(i)})
			_ = cache.Put(fp, "f.mp4", sampleTranscript(), transcript.Metadata{})
			_, _ = cache.Get(fp)
			_ = cache.Stats()
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if cache.Count() != 8 {
		t.Fatalf("expected 8 entries, got %d", cache.Count())
	}
}
