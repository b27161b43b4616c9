package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"captionsync/internal/transcriptcache"
)

const stampLayout = "2006-01-02 15:04"

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "stats"},
		Short:   "List cached transcripts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			stats := cache.Stats()
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache: %s\n", cache.Location())
			printCacheEntries(out, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print cache statistics as JSON")
	return cmd
}

func printCacheEntries(out io.Writer, stats transcriptcache.Stats) {
	if stats.TotalEntries == 0 {
		fmt.Fprintln(out, "Cached transcripts: none")
		return
	}
	rows := make([][]string, 0, len(stats.Entries))
	for i, entry := range stats.Entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			entry.Filename,
			fmt.Sprintf("%.1f min", entry.Duration/60),
			strconv.Itoa(entry.SegmentCount),
			entry.CachedAt.Local().Format(stampLayout),
			entry.Fingerprint[:12],
		})
	}
	headers := []string{"#", "File", "Duration", "Segments", "Cached", "Fingerprint"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
	fmt.Fprintf(out, "%d cached transcript(s)\n", stats.TotalEntries)
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <n|fingerprint>",
		Short: "Show one cached transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			entry, err := cache.Resolve(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entry)
			}
			printCacheEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full entry as JSON")
	return cmd
}

func printCacheEntry(out io.Writer, entry transcriptcache.Entry) {
	meta := entry.Metadata
	fmt.Fprintf(out, "File:        %s\n", entry.Filename)
	fmt.Fprintf(out, "Fingerprint: %s\n", entry.Fingerprint)
	fmt.Fprintf(out, "Cached:      %s\n", entry.CachedAt.Local().Format(stampLayout))
	fmt.Fprintf(out, "Duration:    %.1f min (%.2fs)\n", meta.DurationMinutes, meta.DurationSeconds)
	fmt.Fprintf(out, "Size:        %.2f MB -> %.2f MB audio\n", meta.OriginalSizeMB, meta.CompressedSizeMB)
	fmt.Fprintf(out, "Chunked:     %s\n", yesNo(meta.WasChunked))
	fmt.Fprintf(out, "Language:    %s\n", entry.Transcript.Language)
	fmt.Fprintf(out, "Segments:    %d\n\n", len(entry.Transcript.Segments))

	rows := make([][]string, 0, len(entry.Transcript.Segments))
	for i, seg := range entry.Transcript.Segments {
		rows = append(rows, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.2f", seg.Start),
			fmt.Sprintf("%.2f", seg.End),
			previewText(seg.Text, 80),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(out, []string{"#", "Start", "End", "Text"}, rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignLeft}))
	}
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <n|fingerprint>",
		Aliases: []string{"rm"},
		Short:   "Remove one cached transcript",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			entry, err := cache.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := cache.Remove(entry.Fingerprint); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", entry.Filename, entry.Fingerprint[:12])
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer cache.Close()

			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear transcript cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached transcript(s)\n", count)
			return nil
		},
	}
}
