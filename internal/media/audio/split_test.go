package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"captionsync/internal/services"
)

type fixedProber struct {
	value float64
	err   error
}

func (f fixedProber) Duration(context.Context, string) (float64, error) { return f.value, f.err }

// writingRunner simulates ffmpeg by creating the destination (last argument).
// It fails on the call numbered failOn (1-based); zero never fails.
func writingRunner(calls *[][]string, failOn int) services.CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		*calls = append(*calls, args)
		dest := args[len(args)-1]
		if err := os.WriteFile(dest, []byte("mp3"), 0o644); err != nil {
			return nil, err
		}
		if failOn > 0 && len(*calls) == failOn {
			return nil, errors.New("exit status 1: disk full")
		}
		return nil, nil
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestSplitProducesOrderedChunks(t *testing.T) {
	tempDir := t.TempDir()
	var calls [][]string
	s := &Splitter{Prober: fixedProber{value: 3000}, Run: writingRunner(&calls, 0), TempDir: tempDir}

	chunks, err := s.Split(context.Background(), "/work/audio.mp3", 1200)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []string{"0", "1200", "2400"}
	for i, chunk := range chunks {
		if chunk.Index != i || chunk.Start != float64(i)*1200 || chunk.Duration != 1200 {
			t.Fatalf("unexpected chunk %d: %+v", i, chunk)
		}
		if _, err := os.Stat(chunk.Path); err != nil {
			t.Fatalf("chunk %d missing: %v", i, err)
		}
		if !strings.HasPrefix(chunk.Path, tempDir) || filepath.Ext(chunk.Path) != ".mp3" {
			t.Fatalf("unexpected chunk path %q", chunk.Path)
		}
		if got := argValue(calls[i], "-ss"); got != wantStarts[i] {
			t.Fatalf("chunk %d start arg %q, want %q", i, got, wantStarts[i])
		}
		if got := argValue(calls[i], "-t"); got != "1200" {
			t.Fatalf("chunk %d length arg %q", i, got)
		}
		if got := argValue(calls[i], "-i"); got != "/work/audio.mp3" {
			t.Fatalf("chunk %d input arg %q", i, got)
		}
	}
	if ChunkDir(chunks) != filepath.Dir(chunks[0].Path) {
		t.Fatal("ChunkDir should report the chunk directory")
	}
}

func TestSplitExactMultiple(t *testing.T) {
	var calls [][]string
	s := &Splitter{Prober: fixedProber{value: 2400}, Run: writingRunner(&calls, 0), TempDir: t.TempDir()}
	chunks, err := s.Split(context.Background(), "a.mp3", 1200)
	if err != nil {
		t.Fatalf("Split returned error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSplitZeroDurationYieldsNoChunks(t *testing.T) {
	var calls [][]string
	s := &Splitter{Prober: fixedProber{value: 0}, Run: writingRunner(&calls, 0), TempDir: t.TempDir()}
	chunks, err := s.Split(context.Background(), "a.mp3", 1200)
	if err != nil || len(chunks) != 0 || len(calls) != 0 {
		t.Fatalf("expected no chunks and no calls, got %v %v %d", chunks, err, len(calls))
	}
}

func TestSplitRejectsNonPositiveChunkLength(t *testing.T) {
	s := &Splitter{Prober: fixedProber{value: 10}}
	for _, length := range []float64{0, -5} {
		if _, err := s.Split(context.Background(), "a.mp3", length); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %v, got %v", length, err)
		}
	}
}

func TestSplitProbeFailure(t *testing.T) {
	s := &Splitter{Prober: fixedProber{err: services.Wrap(services.ErrProbe, "probe", "", "", errors.New("boom"))}, TempDir: t.TempDir()}
	_, err := s.Split(context.Background(), "a.mp3", 1200)
	if !errors.Is(err, services.ErrSplit) || !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected split error carrying probe cause, got %v", err)
	}
}

func TestSplitFailureRemovesCreatedChunks(t *testing.T) {
	tempDir := t.TempDir()
	var calls [][]string
	s := &Splitter{Prober: fixedProber{value: 3000}, Run: writingRunner(&calls, 2), TempDir: tempDir}

	chunks, err := s.Split(context.Background(), "a.mp3", 1200)
	if !errors.Is(err, services.ErrSplit) {
		t.Fatalf("expected ErrSplit, got %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected no chunks on failure, got %v", chunks)
	}
	if len(calls) != 2 {
		t.Fatalf("expected splitting to stop at the failing chunk, got %d calls", len(calls))
	}
	entries, readErr := os.ReadDir(tempDir)
	if readErr != nil {
		t.Fatalf("read temp dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected chunk directory to be removed, found %v", entries)
	}
}

func TestRemoveChunksIgnoresMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	chunks := []Chunk{{Path: path}, {Path: filepath.Join(t.TempDir(), "gone.mp3")}}
	if err := RemoveChunks(chunks); err != nil {
		t.Fatalf("RemoveChunks returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected chunk to be removed")
	}
}
