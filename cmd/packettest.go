// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

// errFrameFound stops the stream once the first valid frame arrived
var errFrameFound = errors.New("frame found")

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid reader frame",
	Long: `Wait for a valid Feig reader frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for a frame
that decodes as inventory data or keepalive and passes its CRC check. Bytes
that do not start a frame are skipped.

Readers in notification mode send a keepalive periodically, so a healthy
link normally passes within one keepalive interval.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context(), cfg.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Feigstat - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid Feig frame...\n\n")

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	var found inspection
	var skippedBefore uint64
	_, err = streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
		in := inspect(time.Now(), frame)
		if !in.synced() {
			return nil
		}
		found, skippedBefore = in, skipped
		return errFrameFound
	})

	switch {
	case errors.Is(err, errFrameFound):
		if skippedBefore > 0 {
			fmt.Printf("(skipped %d invalid bytes before sync)\n", skippedBefore)
		}
		fmt.Printf("SUCCESS: Received valid frame\n")
		printFrameSummary(found.message)
		os.Exit(0)

	case err != nil:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)

	default:
		fmt.Fprintf(os.Stderr, "Connection closed before a valid frame was received\n")
		os.Exit(2)
	}

	return nil
}

func printFrameSummary(m feig.Message) {
	switch v := m.(type) {
	case *feig.Data:
		fmt.Printf("  Type: %s (0x%02X)\n", feig.FormatKind(feig.KindData), v.CommandCode)
		fmt.Printf("  Address: %d\n", v.ComAdr)
		fmt.Printf("  Length: %d bytes\n", v.Length)
		fmt.Printf("  Tags: %d\n", len(v.Tags))
		fmt.Printf("  CRC: 0x%04X\n", v.CRC)
	case *feig.Keepalive:
		fmt.Printf("  Type: %s (0x%02X)\n", feig.FormatKind(feig.KindKeepalive), v.CommandCode)
		fmt.Printf("  Address: %d\n", v.ComAdr)
		fmt.Printf("  Length: %d bytes\n", v.Length)
		fmt.Printf("  Status: %s\n", feig.FormatStatus(v.Status))
		fmt.Printf("  CRC: 0x%04X\n", v.CRC)
	}
}
