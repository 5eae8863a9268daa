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
	"go.bug.st/serial"
	"go.uber.org/zap"
)

var (
	discoveryTimeout int
	discoveryBauds   []int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find serial ports with a Feig reader attached",
	Long: `Listen on every serial port, or on --port only, and report which ones
carry valid Feig frames.

Discovery is passive: nothing is written to the ports. It relies on the
reader being in notification mode, where it sends inventory data as tags
arrive and a keepalive at a fixed interval. Choose a --timeout longer than
the reader's keepalive interval.

Each port is tried at every baud rate given with --bauds until a frame with a
correct CRC is seen.

Examples:
  # Scan all ports at the common rates
  feigstat discovery

  # Check one port at one rate
  feigstat discovery --port /dev/ttyUSB0 --bauds 38400

Exit codes:
  0 - Discovery successful (at least one reader found)
  1 - Discovery failed (no readers found)
  2 - Port enumeration error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Seconds to listen per port and baud rate")
	discoveryCmd.Flags().IntSliceVar(&discoveryBauds, "bauds", []int{38400, 115200, 19200, 9600}, "Baud rates to try")
}

// discoveredReader is a port on which a valid frame was seen
type discoveredReader struct {
	port    string
	baud    int
	message feig.Message
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports := []string{cfg.Connection.Port}
	if cfg.Connection.Port == "" {
		var err error
		ports, err = serial.GetPortsList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Port enumeration error: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Printf("Feigstat - Reader Discovery\n")
	fmt.Printf("Ports: %d\n", len(ports))
	fmt.Printf("Baud rates: %v\n", discoveryBauds)
	fmt.Printf("Timeout: %d seconds per attempt\n\n", discoveryTimeout)

	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		os.Exit(1)
	}

	var found []discoveredReader
	for _, port := range ports {
		for _, baud := range discoveryBauds {
			if cmd.Context().Err() != nil {
				break
			}
			fmt.Printf("Listening on %s @ %d baud... ", port, baud)

			r, err := probePort(cmd.Context(), port, baud, time.Duration(discoveryTimeout)*time.Second)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				logger.Debug("probe failed", zap.String("port", port), zap.Int("baud", baud), zap.Error(err))
				break
			}
			if r == nil {
				fmt.Printf("no frames\n")
				continue
			}

			fmt.Printf("found\n")
			found = append(found, *r)
			break
		}
	}

	fmt.Printf("\n--- Discovery Results ---\n")
	if len(found) == 0 {
		fmt.Printf("No readers found\n")
		os.Exit(1)
	}

	for i, r := range found {
		fmt.Printf("Reader %d: %s @ %d baud\n", i+1, r.port, r.baud)
		printFrameSummary(r.message)
	}
	os.Exit(0)
	return nil
}

// probePort listens on one port until a valid frame arrives or the timeout
// expires. It returns nil without error when nothing was heard.
func probePort(ctx context.Context, port string, baud int, timeout time.Duration) (*discoveredReader, error) {
	conn, err := OpenSerialConnection(port, baud)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var found *discoveredReader
	_, err = streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
		in := inspect(time.Now(), frame)
		if !in.synced() {
			return nil
		}
		found = &discoveredReader{port: port, baud: baud, message: in.message}
		return errFrameFound
	})
	if err != nil && !errors.Is(err, errFrameFound) {
		return nil, err
	}
	return found, nil
}
