// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rawLogRecord string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display Feig reader frames as they arrive.

Each frame is shown with its receive time, kind, reader address, status and
CRC result, followed by one line per tag read or the raised keepalive alarms.
Frames that are neither inventory data nor keepalive are shown as GENERIC
with their raw bytes.

With --format json every frame is printed as one JSON object per line; --role
wraps it in an envelope ({"role": ..., "data": ...}).

With --record the raw frames are also appended to a CBOR capture file that
the replay command can read back.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVarP(&outputFormat, "format", "f", formatText, "Output format (text, json)")
	rawLogCmd.Flags().StringVar(&outputRole, "role", "", "Wrap JSON output in an envelope with this role")
	rawLogCmd.Flags().StringVar(&rawLogRecord, "record", "", "Append received frames to this capture file")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	var recorder *feig.CaptureWriter
	if rawLogRecord != "" {
		f, err := os.OpenFile(rawLogRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer f.Close()
		recorder = feig.NewCaptureWriter(f)
	}

	conn, connInfo, err := OpenConnection(cmd.Context(), cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if outputFormat == formatText {
		fmt.Printf("Feigstat - Raw Frame Log\n")
		fmt.Printf("Connection: %s\n", connInfo)
		if recorder != nil {
			fmt.Printf("Recording: %s\n", rawLogRecord)
		}
		fmt.Printf("Press Ctrl+C to exit\n\n")
	}
	logger.Info("raw log started", zap.String("connection", connInfo))

	_, err = streamFrames(cmd.Context(), conn, func(frame []byte, skipped uint64) error {
		now := time.Now()

		if recorder != nil {
			if err := recorder.Write(feig.NewCaptureRecord(now, connInfo, frame)); err != nil {
				return err
			}
		}

		in := inspect(now, frame)
		if in.cause != nil {
			logger.Debug("unrecognized frame", zap.Binary("frame", frame), zap.Error(in.cause))
		}
		return writeMessage(os.Stdout, outputFormat, outputRole, now, in.message)
	})
	return err
}
