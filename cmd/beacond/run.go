package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/node"
	"github.com/srg/beacond/pkg/config"
	"github.com/srg/beacond/scanner"
)

type runOptions struct {
	radio     string
	replay    string
	transport string
	deviceID  int
	duration  time.Duration
	quiet     bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan for beacons and report sightings",
		Long: `Run the beacon node until interrupted.

Every scan interval the node waits for the network link, listens for one scan
window and queues each tagged beacon it hears once. Queued sightings are sent
to the backend at the end of every cycle and periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNode(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.radio, "radio", "", "Radio backend (goble, tinygo, replay)")
	cmd.Flags().StringVar(&opts.replay, "replay", "", "Replay advertisements from a capture file instead of the radio")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "Backend transport (legacy, http, log)")
	cmd.Flags().IntVar(&opts.deviceID, "device-id", -1, "Override the node device id (0-255)")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print cycle summaries")
	return cmd
}

// apply overlays the command-line overrides on cfg.
func (o *runOptions) apply(cfg *config.Config) error {
	if o.radio != "" {
		cfg.Radio.Backend = o.radio
	}
	if o.replay != "" {
		cfg.Radio.Backend = radio.BackendReplay
		cfg.Radio.ReplayFile = o.replay
	}
	if o.transport != "" {
		cfg.Backend.Transport = o.transport
	}
	if o.deviceID >= 0 {
		if o.deviceID > 255 {
			return fmt.Errorf("invalid device id %d: must be 0-255", o.deviceID)
		}
		cfg.DeviceID = uint8(o.deviceID)
	}
	return nil
}

func runNode(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	n, err := node.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	// Listen for Ctrl+C to stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printCycles(ctx, cmd.OutOrStdout(), n.Scanner().Events(), opts.quiet)
	}()

	err = n.Run(ctx)
	cancel()
	<-printed
	if opts.duration > 0 && errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func printCycles(ctx context.Context, w io.Writer, events <-chan scanner.CycleSummary, quiet bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case sum := <-events:
			if !quiet {
				fmt.Fprintln(w, formatCycle(sum))
			}
		}
	}
}

func formatCycle(s scanner.CycleSummary) string {
	line := fmt.Sprintf("cycle %d: %d observed, %d beacons, %d duplicates, %d queued, %d dropped (%s)",
		s.ID, s.Observed, s.Beacons, s.Duplicates, s.Enqueued, s.Dropped, s.Duration().Round(time.Millisecond))
	if s.EndedEarly {
		line += " [ended early: link lost]"
	}
	return line
}
