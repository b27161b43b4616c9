package transcript

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Segment is one time-aligned span of recognised speech. Times are seconds
// from the start of the media.
type Segment struct {
	ID               int64   `json:"id"`
	Seek             int64   `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int64 `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// Shift returns a copy of the segment moved later by offset seconds.
func (s Segment) Shift(offset float64) Segment {
	s.Start += offset
	s.End += offset
	return s
}

// Contains reports whether t falls within the closed interval [Start, End].
func (s Segment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End
}

// Transcript is the result of transcribing one media file.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Duration returns the end time of the last segment.
func (t Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Validate checks the segment invariants: non-empty text, end not before
// start, and ordering by start time.
func (t Transcript) Validate() error {
	prev := math.Inf(-1)
	for i, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("segment %d: empty text", i)
		}
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) {
			return fmt.Errorf("segment %d: invalid time", i)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %.3f before start %.3f", i, seg.End, seg.Start)
		}
		if seg.Start < prev {
			return fmt.Errorf("segment %d: start %.3f before previous start %.3f", i, seg.Start, prev)
		}
		prev = seg.Start
	}
	return nil
}

// JoinText trims each segment text, collapses inner whitespace, and joins the
// results with single spaces.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if cleaned := CleanText(seg.Text); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, " ")
}

// CleanText normalises text to NFC and collapses runs of whitespace.
func CleanText(value string) string {
	return strings.Join(strings.Fields(norm.NFC.String(value)), " ")
}

// Metadata describes one pipeline run as reported to the caller.
type Metadata struct {
	DurationSeconds  float64    `json:"durationSeconds"`
	DurationMinutes  float64    `json:"durationMinutes"`
	OriginalSizeMB   float64    `json:"originalSizeMB"`
	CompressedSizeMB float64    `json:"compressedSizeMB"`
	WasChunked       bool       `json:"wasChunked"`
	FromCache        bool       `json:"fromCache"`
	CachedAt         *time.Time `json:"cachedAt,omitempty"`
}

// NewMetadata builds run metadata with minutes rounded to one decimal and
// sizes (bytes in, megabytes out) rounded to two.
func NewMetadata(durationSeconds float64, originalBytes, compressedBytes int64, chunked bool) Metadata {
	return Metadata{
		DurationSeconds:  durationSeconds,
		DurationMinutes:  Round(durationSeconds/60, 1),
		OriginalSizeMB:   Round(BytesToMB(originalBytes), 2),
		CompressedSizeMB: Round(BytesToMB(compressedBytes), 2),
		WasChunked:       chunked,
	}
}

// BytesToMB converts a byte count to binary megabytes.
func BytesToMB(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
