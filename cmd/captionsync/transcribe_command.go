package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/captions"
	"captionsync/internal/config"
	"captionsync/internal/pipeline"
	"captionsync/internal/transcript"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		srtPath    string
		vttPath    string
		speakers   bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <video>",
		Short: "Transcribe a video, reusing the cache when the same file was seen before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read video: %w", err)
			}

			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			runner, err := ctx.newRunner(cache)
			if err != nil {
				return err
			}
			result := runner.Run(cmd.Context(), pipeline.Request{Filename: filepath.Base(path), Data: data})

			if jsonOutput {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			}
			if !result.Success {
				return errors.New(result.Error)
			}

			opts := captions.WriteOptions{Speakers: speakers}
			if _, err := writeSubtitleFile(srtPath, captions.FormatSRT, *result.Transcript, opts); err != nil {
				return err
			}
			if _, err := writeSubtitleFile(vttPath, captions.FormatVTT, *result.Transcript, opts); err != nil {
				return err
			}
			if !jsonOutput {
				printTranscribeSummary(cmd.OutOrStdout(), filepath.Base(path), result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the pipeline result as JSON")
	cmd.Flags().StringVar(&srtPath, "srt", "", "Also write SubRip subtitles to this path")
	cmd.Flags().StringVar(&vttPath, "vtt", "", "Also write WebVTT subtitles to this path")
	cmd.Flags().BoolVar(&speakers, "speakers", false, "Prefix subtitle cues with placeholder speaker labels")
	return cmd
}

func printTranscribeSummary(out io.Writer, name string, result pipeline.Result) {
	meta := result.Metadata
	source := "transcribed"
	if meta.FromCache {
		source = "cache"
		if meta.CachedAt != nil {
			source = fmt.Sprintf("cache (stored %s)", meta.CachedAt.Local().Format(stampLayout))
		}
	}
	fmt.Fprintf(out, "File:        %s\n", name)
	fmt.Fprintf(out, "Fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(out, "Source:      %s\n", source)
	fmt.Fprintf(out, "Duration:    %.1f min (%.2fs)\n", meta.DurationMinutes, meta.DurationSeconds)
	fmt.Fprintf(out, "Size:        %.2f MB -> %.2f MB audio\n", meta.OriginalSizeMB, meta.CompressedSizeMB)
	fmt.Fprintf(out, "Chunked:     %s\n", yesNo(meta.WasChunked))
	fmt.Fprintf(out, "Segments:    %d\n", len(result.Transcript.Segments))
	if text := strings.TrimSpace(result.Transcript.Text); text != "" {
		fmt.Fprintf(out, "\n%s\n", previewText(text, 400))
	}
}

// writeSubtitleFile renders tr to path, creating missing parent directories,
// and returns the expanded path. An empty path is a no-op.
func writeSubtitleFile(path string, format captions.Format, tr transcript.Transcript, opts captions.WriteOptions) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", format, err)
	}
	file, err := os.Create(expanded)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", format, err)
	}
	if err := captions.Write(file, format, tr, opts); err != nil {
		file.Close()
		return "", fmt.Errorf("write %s: %w", format, err)
	}
	return expanded, file.Close()
}

func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
