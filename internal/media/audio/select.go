package audio

import (
	"strconv"
	"strings"

	"captionsync/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for transcription.
type Selection struct {
	Primary ffprobe.Stream
	// PrimaryIndex is the container stream index, or -1 when the container has no audio.
	PrimaryIndex int
	AudioCount   int
}

// Explicit reports whether ffmpeg should be told which stream to map.
func (s Selection) Explicit() bool {
	return s.PrimaryIndex >= 0 && s.AudioCount > 1
}

// Label returns a human-readable summary of the selected stream.
func (s Selection) Label() string {
	if s.PrimaryIndex < 0 {
		return ""
	}
	parts := make([]string, 0, 3)
	if lang := streamLanguage(s.Primary.Tags); lang != "" {
		parts = append(parts, lang)
	}
	if s.Primary.CodecName != "" {
		parts = append(parts, s.Primary.CodecName)
	}
	if s.Primary.Channels > 0 {
		parts = append(parts, strconv.Itoa(s.Primary.Channels)+"ch")
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}

// Select picks the primary English audio stream. When no stream is tagged
// English every audio stream competes. Ties go to the earlier stream.
func Select(streams []ffprobe.Stream) Selection {
	var all []ffprobe.Stream
	for _, stream := range streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			all = append(all, stream)
		}
	}
	if len(all) == 0 {
		return Selection{PrimaryIndex: -1}
	}

	pool := make([]ffprobe.Stream, 0, len(all))
	for _, stream := range all {
		if strings.HasPrefix(streamLanguage(stream.Tags), "en") {
			pool = append(pool, stream)
		}
	}
	if len(pool) == 0 {
		pool = all
	}

	best := pool[0]
	bestScore := score(best)
	for _, stream := range pool[1:] {
		if s := score(stream); s > bestScore {
			best, bestScore = stream, s
		}
	}
	return Selection{Primary: best, PrimaryIndex: best.Index, AudioCount: len(all)}
}

func score(stream ffprobe.Stream) int {
	total := stream.Channels * 100
	if isLossless(stream) {
		total += 10
	}
	if stream.Disposition["default"] == 1 {
		total++
	}
	return total
}

func streamLanguage(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "language_ietf"} {
		if value, ok := tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

func isLossless(stream ffprobe.Stream) bool {
	switch strings.ToLower(stream.CodecName) {
	case "truehd", "flac", "mlp", "alac", "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_bluray":
		return true
	}
	long := strings.ToLower(stream.CodecLongName)
	return strings.Contains(long, "lossless") || strings.Contains(long, "master audio")
}
