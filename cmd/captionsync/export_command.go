package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/captions"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag string
		outputPath string
		speakers   bool
	)

	cmd := &cobra.Command{
		Use:   "export <n|fingerprint>",
		Short: "Render a cached transcript as SRT or WebVTT subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := captions.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			entry, err := cache.Resolve(args[0])
			if err != nil {
				return err
			}

			opts := captions.WriteOptions{Speakers: speakers}
			target := strings.TrimSpace(outputPath)
			if target == "" || target == "-" {
				return captions.Write(cmd.OutOrStdout(), format, entry.Transcript, opts)
			}
			written, err := writeSubtitleFile(target, format, entry.Transcript, opts)
			if err != nil {
				return err
			}
			reportExport(cmd.ErrOrStderr(), written, len(entry.Transcript.Segments))
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", string(captions.FormatSRT), "Subtitle format (srt or vtt)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&speakers, "speakers", false, "Prefix cues with placeholder speaker labels")
	return cmd
}

func reportExport(out io.Writer, path string, segments int) {
	fmt.Fprintf(out, "Wrote %d cue(s) to %s\n", segments, path)
}
