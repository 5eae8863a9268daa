// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
)

var (
	replayRealtime bool
	replayStats    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Decode frames from a capture file",
	Long: `Read a capture file written by raw_log --record and print every frame
as raw_log would have, using the original receive times.

With --realtime the gaps between frames are reproduced. With --stats a
statistics summary is printed after the last frame.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&outputFormat, "format", "f", formatText, "Output format (text, json)")
	replayCmd.Flags().StringVar(&outputRole, "role", "", "Wrap JSON output in an envelope with this role")
	replayCmd.Flags().BoolVar(&replayRealtime, "realtime", false, "Reproduce the original timing between frames")
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Print statistics after the last frame")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := replayCapture(ctx, f, cmd.OutOrStdout(), replayRealtime)
	if err != nil {
		return err
	}
	if replayStats {
		fmt.Fprint(cmd.OutOrStdout(), stats.String())
	}
	return nil
}

// replayCapture prints every record of a capture and returns the statistics
// gathered over it
func replayCapture(ctx context.Context, r io.Reader, out io.Writer, realtime bool) (*feig.Statistics, error) {
	cr := feig.NewCaptureReader(r)
	stats := feig.NewStatistics()

	var prev time.Time
	for {
		rec, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		at := rec.Time()
		if realtime && !prev.IsZero() && at.After(prev) {
			select {
			case <-ctx.Done():
				return stats, nil
			case <-time.After(at.Sub(prev)):
			}
		}
		prev = at

		in := inspect(at, rec.Frame)
		stats.Update(in.message, in.anomalies)
		if err := writeMessage(out, outputFormat, outputRole, at, in.message); err != nil {
			return stats, err
		}
	}
}
