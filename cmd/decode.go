// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
)

var decodeExplain bool

var decodeCmd = &cobra.Command{
	Use:   "decode [HEX...]",
	Short: "Decode hex-encoded frames without a connection",
	Long: `Classify frames given as hex strings, one frame per argument, or one per
line on standard input when no arguments are given.

Whitespace, colons and a leading 0x are ignored, so frames copied from a
logic analyzer or a hex dump can be pasted as they are.

With --explain, frames that are not recognized as data or keepalive are
followed by the reason each decoder rejected them, and every anomaly found by
the validator is listed.`,
	Example: `  feigstat decode 02000a006e0000004b69
  echo "02 00 0a 00 6e 00 00 00 4b 69" | feigstat decode --format json`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVarP(&outputFormat, "format", "f", formatText, "Output format (text, json)")
	decodeCmd.Flags().StringVar(&outputRole, "role", "", "Wrap JSON output in an envelope with this role")
	decodeCmd.Flags().BoolVar(&decodeExplain, "explain", false, "Show why frames were not recognized and list anomalies")
}

// parseHexFrame converts a pasted hex frame to bytes
func parseHexFrame(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", "\t", "", ":", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame: %w", err)
	}
	return b, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(args) > 0 {
		for _, arg := range args {
			if err := decodeOne(out, arg); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 4096), 2*feig.MaxFrameSize+16)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := decodeOne(out, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func decodeOne(out io.Writer, s string) error {
	frame, err := parseHexFrame(s)
	if err != nil {
		return err
	}

	in := inspect(time.Time{}, frame)
	if err := writeMessage(out, outputFormat, outputRole, time.Time{}, in.message); err != nil {
		return err
	}

	if decodeExplain && outputFormat == formatText {
		if in.cause != nil {
			for _, line := range strings.Split(in.cause.Error(), "\n") {
				fmt.Fprintf(out, "  Rejected: %s\n", line)
			}
		}
		for i, a := range in.anomalies {
			fmt.Fprintf(out, "  Issue %d: [%s] %s\n", i+1, a.Type, a.Message)
		}
	}
	return nil
}
