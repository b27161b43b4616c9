// Package mp3probe measures MP3 duration by decoding frame headers in process.
// It backs the splitter when ffprobe is unavailable for an extracted artifact.
package mp3probe

import (
	"errors"
	"fmt"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Duration returns the playback length of the MP3 at path in seconds.
func Duration(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mp3: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	rate := decoder.SampleRate()
	if rate <= 0 {
		return 0, errors.New("decode mp3: invalid sample rate")
	}
	length := decoder.Length()
	if length < 0 {
		return 0, errors.New("decode mp3: length unavailable")
	}
	// Decoded output is 16-bit stereo: four bytes per sample frame.
	return float64(length) / 4 / float64(rate), nil
}
