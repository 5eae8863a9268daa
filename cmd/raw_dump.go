// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
)

var rawDumpCmd = &cobra.Command{
	Use:   "raw_dump",
	Short: "Test link stability by dumping received bytes",
	Long: `Connect and print every chunk of bytes as it arrives, without cutting it
into frames. Useful for debugging connection stability issues and for
checking the framing of a WebSocket bridge.

A start byte (0x02) at the beginning of a chunk is flagged so that chunking
that splits frames is easy to spot.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	RunE: runRawDump,
}

var rawDumpDuration int

func init() {
	rootCmd.AddCommand(rawDumpCmd)
	rawDumpCmd.Flags().IntVar(&rawDumpDuration, "duration", 30, "Test duration in seconds")
}

func runRawDump(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context(), cfg.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", rawDumpDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go pumpChunks(conn, readChan, errChan, done)

	start := time.Now()
	endTime := start.Add(time.Duration(rawDumpDuration) * time.Second)
	bytesReceived := 0
	chunksReceived := 0

	fmt.Printf("Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			chunksReceived++
			marker := ""
			if data[0] == feig.StartByte {
				marker = " (STX)"
			}
			fmt.Printf("[%s] Received %d bytes%s: %x\n",
				time.Now().Format("15:04:05.000"), len(data), marker, data)

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			printRawDumpResults(time.Since(start), chunksReceived, bytesReceived)
			fmt.Printf("Result: FAILED (connection error)\n")
			os.Exit(1)

		case <-cmd.Context().Done():
			printRawDumpResults(time.Since(start), chunksReceived, bytesReceived)
			fmt.Printf("Result: INTERRUPTED\n")
			return nil

		case <-heartbeat.C:
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), remaining)
		}
	}

	printRawDumpResults(time.Since(start), chunksReceived, bytesReceived)
	fmt.Printf("Result: PASSED (connection stable)\n")

	return nil
}

// pumpChunks copies each read from conn into chunks until a read fails or
// done is closed
func pumpChunks(conn io.Reader, chunks chan<- []byte, errs chan<- error, done <-chan struct{}) {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			select {
			case errs <- err:
			case <-done:
			}
			return
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case chunks <- data:
		case <-done:
			return
		}
	}
}

func printRawDumpResults(elapsed time.Duration, chunks, bytes int) {
	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Chunks received: %d\n", chunks)
	fmt.Printf("Bytes received: %d\n", bytes)
}
