package transcript_test

import (
	"encoding/json"
	"testing"
	"time"

	"captionsync/internal/transcript"
)

func TestJoinTextTrimsAndCollapses(t *testing.T) {
	segments := []transcript.Segment{
		{Text: "  Hello   there "},
		{Text: "   "},
		{Text: "\tgeneral\nKenobi"},
	}
	if got := transcript.JoinText(segments); got != "Hello there general Kenobi" {
		t.Fatalf("unexpected joined text %q", got)
	}
	if got := transcript.JoinText(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestCleanTextNormalisesNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	if got := transcript.CleanText(decomposed); got != "caf\u00e9" {
		t.Fatalf("expected composed form, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		segments []transcript.Segment
		wantErr  bool
	}{
		{"empty transcript", nil, false},
		{"ordered", []transcript.Segment{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 1, Text: "b"}}, false},
		{"end before start", []transcript.Segment{{Start: 2, End: 1, Text: "a"}}, true},
		{"blank text", []transcript.Segment{{Start: 0, End: 1, Text: "  "}}, true},
		{"out of order", []transcript.Segment{{Start: 5, End: 6, Text: "a"}, {Start: 4, End: 7, Text: "b"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transcript.Transcript{Segments: tt.segments}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSegmentShiftAndContains(t *testing.T) {
	seg := transcript.Segment{Start: 5, End: 7, Text: "x"}.Shift(1200)
	if seg.Start != 1205 || seg.End != 1207 {
		t.Fatalf("unexpected shifted segment %+v", seg)
	}
	if !seg.Contains(1205) || !seg.Contains(1207) || seg.Contains(1207.01) {
		t.Fatal("expected closed interval semantics")
	}
}

func TestSegmentJSONUsesRemoteFieldNames(t *testing.T) {
	raw := `{"id":3,"seek":0,"start":1.5,"end":2.25,"text":" hi","tokens":[50364,2425],"temperature":0,"avg_logprob":-0.31,"compression_ratio":1.2,"no_speech_prob":0.01}`
	var seg transcript.Segment
	if err := json.Unmarshal([]byte(raw), &seg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if seg.ID != 3 || seg.AvgLogprob != -0.31 || seg.CompressionRatio != 1.2 || seg.NoSpeechProb != 0.01 || len(seg.Tokens) != 2 {
		t.Fatalf("unexpected segment %+v", seg)
	}
	if seg.Text != " hi" {
		t.Fatalf("text should be preserved verbatim, got %q", seg.Text)
	}
}

func TestNewMetadataRounds(t *testing.T) {
	meta := transcript.NewMetadata(3000, 150*1024*1024+5000, 23*1024*1024+100000, true)
	if meta.DurationMinutes != 50 {
		t.Fatalf("unexpected minutes %v", meta.DurationMinutes)
	}
	if meta.OriginalSizeMB != 150 {
		t.Fatalf("unexpected original size %v", meta.OriginalSizeMB)
	}
	if meta.CompressedSizeMB != 23.1 {
		t.Fatalf("unexpected compressed size %v", meta.CompressedSizeMB)
	}
	if !meta.WasChunked {
		t.Fatal("expected chunked flag")
	}

	short := transcript.NewMetadata(125.4, 0, 0, false)
	if short.DurationMinutes != 2.1 {
		t.Fatalf("unexpected minutes %v", short.DurationMinutes)
	}
}

func TestMetadataJSONNames(t *testing.T) {
	cachedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := transcript.Metadata{DurationSeconds: 60, DurationMinutes: 1, FromCache: true, CachedAt: &cachedAt}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"durationSeconds", "durationMinutes", "originalSizeMB", "compressedSizeMB", "wasChunked", "fromCache", "cachedAt"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
	if payload["cachedAt"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected cachedAt %v", payload["cachedAt"])
	}
}

func TestMetadataJSONAlwaysCarriesFromCache(t *testing.T) {
	data, err := json.Marshal(transcript.NewMetadata(60, 1, 1, false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fromCache, ok := payload["fromCache"]
	if !ok || fromCache != false {
		t.Fatalf("expected fromCache=false on a fresh run, got %s", data)
	}
	if _, ok := payload["cachedAt"]; ok {
		t.Fatalf("cachedAt should be omitted on a fresh run, got %s", data)
	}
}
