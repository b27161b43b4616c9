package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/captions"
	"captionsync/internal/transcript"
)

const playbackStep = 0.25

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var (
		rate float64
		from float64
	)

	cmd := &cobra.Command{
		Use:   "play <n|fingerprint>",
		Short: "Replay a cached transcript against a simulated playback clock",
		Long: "Drives the caption synchronizer with a clock advancing in 250 ms steps and prints\n" +
			"each show/hide transition. Speaker colours are a round-robin placeholder.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rate <= 0 {
				return errors.New("--rate must be positive")
			}
			if from < 0 {
				return errors.New("--from must be non-negative")
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Playing %s (%.1fs) at %gx\n", entry.Filename, entry.Transcript.Duration(), rate)
			clock := playbackClock{step: playbackStep, rate: rate, sleep: sleepContext}
			return clock.run(cmd.Context(), entry.Transcript, from, &printListener{out: out})
		},
	}

	cmd.Flags().Float64Var(&rate, "rate", 1, "Playback speed multiplier")
	cmd.Flags().Float64Var(&from, "from", 0, "Start position in seconds")
	return cmd
}

// playbackClock advances media time in fixed steps, sleeping step/rate of
// wall time between updates.
type playbackClock struct {
	step  float64
	rate  float64
	sleep func(ctx context.Context, d time.Duration) error
}

func (c playbackClock) run(ctx context.Context, tr transcript.Transcript, from float64, listener captions.Listener) error {
	synchronizer := captions.NewSynchronizer(tr, listener, nil)
	defer synchronizer.Stop()

	end := tr.Duration()
	pause := time.Duration(c.step / c.rate * float64(time.Second))
	for tick := 0; ; tick++ {
		now := from + float64(tick)*c.step
		if now > end {
			return nil
		}
		synchronizer.OnTimeUpdate(now)
		if err := c.sleep(ctx, pause); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// printListener writes one line per caption transition.
type printListener struct {
	out io.Writer
}

func (p *printListener) Show(e captions.Event) {
	fmt.Fprintf(p.out, "show  #%-4d speaker %d %s  %s\n", e.Index, e.Speaker+1, e.Color, e.Text)
}

func (p *printListener) Hide() {
	fmt.Fprintln(p.out, "hide")
}
