package audio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"captionsync/internal/media/ffprobe"
	"captionsync/internal/services"
)

type stubInspector struct {
	result ffprobe.Result
	err    error
}

func (s stubInspector) Inspect(context.Context, string) (ffprobe.Result, error) {
	return s.result, s.err
}

func recordingRunner(calls *[]string, err error) services.CommandRunner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, name+" "+strings.Join(args, " "))
		return nil, err
	}
}

func TestExtractDefaultStream(t *testing.T) {
	var calls []string
	e := &Extractor{FFmpeg: "ffmpeg", Run: recordingRunner(&calls, nil), Inspector: stubInspector{err: errors.New("no ffprobe")}}

	if err := e.Extract(context.Background(), "/in/video.mp4", "/tmp/out.mp3"); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	want := "ffmpeg -y -hide_banner -loglevel error -i /in/video.mp4 -vn -ar 16000 -ac 1 -b:a 64k /tmp/out.mp3"
	if len(calls) != 1 || calls[0] != want {
		t.Fatalf("unexpected invocation:\n got %q\nwant %q", calls, want)
	}
}

func TestExtractMapsPrimaryStreamWhenSeveral(t *testing.T) {
	var calls []string
	inspector := stubInspector{result: ffprobe.Result{Streams: []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", Channels: 2, Tags: map[string]string{"language": "eng"}},
		{Index: 2, CodecType: "audio", Channels: 6, Tags: map[string]string{"language": "eng"}},
	}}}
	e := &Extractor{Run: recordingRunner(&calls, nil), Inspector: inspector}

	if err := e.Extract(context.Background(), "movie.mkv", "out.mp3"); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(calls) != 1 || !strings.Contains(calls[0], "-i movie.mkv -map 0:2 -vn") {
		t.Fatalf("expected explicit stream mapping, got %q", calls)
	}
}

func TestExtractFailureWrapsExtractionError(t *testing.T) {
	var calls []string
	e := &Extractor{Run: recordingRunner(&calls, errors.New("exit status 1: no audio"))}

	err := e.Extract(context.Background(), "video.mp4", "out.mp3")
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if !strings.Contains(err.Error(), "no audio") {
		t.Fatalf("expected tool detail in error, got %v", err)
	}
}

func TestExtractRejectsEmptyPaths(t *testing.T) {
	e := &Extractor{}
	if err := e.Extract(context.Background(), "", "out.mp3"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
