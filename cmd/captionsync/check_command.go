package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"captionsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		online     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check tools, directories, credentials and the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Online: online})
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if ctx.configPath != "" {
					fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
				}
				printCheckResults(out, results)
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "Also call the transcription service to validate the API key")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func printCheckResults(out io.Writer, results []preflight.Result) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, checkStatus(r), r.Detail})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, rows, nil))
}

func checkStatus(r preflight.Result) string {
	switch {
	case !r.Passed:
		return "FAIL"
	case r.Warning:
		return "WARN"
	default:
		return "ok"
	}
}
