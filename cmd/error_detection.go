// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and reader alarms",
	Long: `Track frame errors, malformed data and reader alarms with statistics.

This command validates each frame and detects:
  - CRC errors and frames that match no known layout
  - Length field and tag record length mismatches
  - Unknown transponder and ID-descriptor types
  - Keepalive alarms (temperature, power, antenna impedance, noise)
  - Non-zero reader status
  - Statistics and trends (frame rate, tag rate, error rate)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive")
	}

	conn, connInfo, err := OpenConnection(cmd.Context(), cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(cmd.Context(), conn, connInfo)
	}
	return runTextMode(cmd.Context(), conn, connInfo)
}

// printValidationErrors prints the anomalies of one frame
func printValidationErrors(in inspection) {
	timestamp := in.received.Format("15:04:05.000")
	kind := feig.FormatKind(in.message.Kind())

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (%d bytes)\n", timestamp, kind, len(in.message.Bytes()))

	for i, a := range in.anomalies {
		switch a.Type {
		case feig.AnomalyCRCError, feig.AnomalyLengthMismatch, feig.AnomalyRecordLength:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)

		case feig.AnomalyAlarm:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, a.Message)
			if flagsA, ok := a.Details["flags_a"].(uint8); ok {
				if flagsB, ok := a.Details["flags_b"].(uint8); ok {
					fmt.Printf("    flags A=0x%02X B=0x%02X\n", flagsA, flagsB)
				}
			}

		case feig.AnomalyUnrecognized:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)
			if in.cause != nil {
				fmt.Printf("    %v\n", in.cause)
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, a.Message)
		}
	}

	fmt.Printf("  Raw: %x\n", in.message.Bytes())
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, conn Connection, connInfo string) error {
	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		synchronized := false
		skipped, err := streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
			in := inspect(time.Now(), frame)
			if !synchronized {
				if !in.synced() {
					return nil
				}
				synchronized = true
				p.Send(syncMsg{skipped: skipped})
			}
			p.Send(frameMsg{inspection: in, skipped: skipped})
			return nil
		})
		p.Send(streamEndMsg{err: err, skipped: skipped})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, conn Connection, connInfo string) error {
	fmt.Printf("Feigstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	_, err := detectErrors(ctx, conn, time.Duration(statsInterval)*time.Second)
	return err
}

// detectErrors validates every frame from conn, printing anomalies as they
// arrive and a statistics summary every interval and when the stream ends
func detectErrors(ctx context.Context, conn Connection, interval time.Duration) (*feig.Statistics, error) {
	stats := feig.NewStatistics()

	statsTicker := time.NewTicker(interval)
	defer statsTicker.Stop()

	type received struct {
		in      inspection
		skipped uint64
	}
	type streamEnd struct {
		skipped uint64
		err     error
	}
	frames := make(chan received, 16)
	done := make(chan streamEnd, 1)

	go func() {
		var end streamEnd
		end.skipped, end.err = streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
			select {
			case frames <- received{in: inspect(time.Now(), frame), skipped: skipped}:
			case <-ctx.Done():
			}
			return nil
		})
		done <- end
		close(frames)
	}()

	// Frames before the first good one are counted as skipped, not as errors
	synchronized := false
	var skippedSoFar uint64

	for {
		select {
		case r, ok := <-frames:
			if !ok {
				end := <-done
				// Bytes dropped after the last frame
				stats.AddSkipped(end.skipped - skippedSoFar)

				fmt.Println()
				fmt.Print(stats.String())
				if end.err != nil {
					logger.Error("error detection stopped", zap.Error(end.err))
				}
				return stats, end.err
			}

			stats.AddSkipped(r.skipped - skippedSoFar)
			skippedSoFar = r.skipped

			if !synchronized {
				if !r.in.synced() {
					continue
				}
				synchronized = true
				if r.skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", r.skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			stats.Update(r.in.message, r.in.anomalies)

			if len(r.in.anomalies) > 0 {
				printValidationErrors(r.in)
			} else if showAll {
				fmt.Printf("[%s] %s", r.in.received.Format("15:04:05.000"), feig.FormatMessage(r.in.message))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
