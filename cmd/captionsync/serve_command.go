package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"captionsync/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transcription API and caption stream over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
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

			bind := cfg.Server.Bind
			if value := strings.TrimSpace(bindFlag); value != "" {
				bind = value
			}
			server, err := api.NewServer(runner, cache, api.Options{
				Bind:           bind,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}, logger)
			if err != nil {
				return err
			}
			if err := server.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (Ctrl+C to stop)\n", server.Addr())

			<-cmd.Context().Done()
			server.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override server.bind")
	return cmd
}
