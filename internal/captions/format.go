package captions

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"captionsync/internal/transcript"
)

// Format names a subtitle file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat accepts "srt" or "vtt" in any case.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q (want srt or vtt)", value)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatVTT {
		return "text/vtt; charset=utf-8"
	}
	return "application/x-subrip; charset=utf-8"
}

// WriteOptions controls subtitle rendering.
type WriteOptions struct {
	// Speakers prefixes each cue with "Speaker N:".
	Speakers bool
	Assigner SpeakerAssigner
}

// Write renders t in the given format.
func Write(w io.Writer, format Format, t transcript.Transcript, opts WriteOptions) error {
	if format == FormatVTT {
		return WriteVTT(w, t, opts)
	}
	return WriteSRT(w, t, opts)
}

// WriteSRT renders t as SubRip. Segments with no text are skipped and cues
// are renumbered from 1.
func WriteSRT(w io.Writer, t transcript.Transcript, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	cue := 0
	for i, seg := range t.Segments {
		text := cueText(i, seg, opts)
		if text == "" {
			continue
		}
		cue++
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", cue, formatTimestamp(seg.Start, ','), formatTimestamp(seg.End, ','), text)
	}
	return bw.Flush()
}

// WriteVTT renders t as WebVTT.
func WriteVTT(w io.Writer, t transcript.Transcript, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("WEBVTT\n\n")
	for i, seg := range t.Segments {
		text := cueText(i, seg, opts)
		if text == "" {
			continue
		}
		fmt.Fprintf(bw, "%s --> %s\n%s\n\n", formatTimestamp(seg.Start, '.'), formatTimestamp(seg.End, '.'), text)
	}
	return bw.Flush()
}

func cueText(index int, seg transcript.Segment, opts WriteOptions) string {
	text := transcript.CleanText(seg.Text)
	if text == "" || !opts.Speakers {
		return text
	}
	assigner := opts.Assigner
	if assigner == nil {
		assigner = DefaultSpeakers
	}
	return "Speaker " + strconv.Itoa(assigner.Speaker(index)+1) + ": " + text
}

// formatTimestamp renders HH:MM:SS<sep>mmm, clamping negatives to zero.
func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int64(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}
