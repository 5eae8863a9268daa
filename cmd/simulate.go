// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simInterval       time.Duration
	simCount          int
	simStdout         bool
	simSeed           int64
	simComAdr         uint8
	simMaxTags        int
	simKeepaliveEvery int
	simAlarmRate      float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Emit synthetic reader frames",
	Long: `Generate inventory and keepalive frames the way a Feig reader in
notification mode would, and write them to the connection or, with --stdout,
print them as hex lines that the decode command accepts.

Useful for exercising a WebSocket bridge or the other commands without
hardware. Tags are drawn from a fixed population so the same serial numbers
recur, as they do in front of a real antenna.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(&simInterval, "interval", time.Second, "Delay between frames")
	simulateCmd.Flags().IntVar(&simCount, "count", 0, "Number of frames to emit (0 = until interrupted)")
	simulateCmd.Flags().BoolVar(&simStdout, "stdout", false, "Print frames as hex lines instead of writing to a connection")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 = time based)")
	simulateCmd.Flags().Uint8Var(&simComAdr, "com-adr", 0, "Reader address written into every frame")
	simulateCmd.Flags().IntVar(&simMaxTags, "max-tags", 3, "Maximum tag records per data frame")
	simulateCmd.Flags().IntVar(&simKeepaliveEvery, "keepalive-every", 5, "Emit a keepalive every N frames")
	simulateCmd.Flags().Float64Var(&simAlarmRate, "alarm-rate", 0, "Probability that a keepalive raises an alarm flag")
}

// frameSimulator produces a stream of plausible reader frames
type frameSimulator struct {
	rng            *rand.Rand
	comAdr         uint8
	maxTags        int
	keepaliveEvery int
	alarmRate      float64
	population     []feig.TagRecord
	emitted        int
}

func newFrameSimulator(seed int64, comAdr uint8, maxTags, keepaliveEvery int, alarmRate float64) *frameSimulator {
	rng := rand.New(rand.NewSource(seed))

	var mac [feig.MACSize]byte
	rng.Read(mac[:])

	population := make([]feig.TagRecord, 16)
	for i := range population {
		t := &population[i]
		t.MAC = mac
		if i%2 == 0 {
			t.TransponderType = feig.TransponderISO18000_3M3
			t.IDDType = feig.IDDTypeEPC
			t.SerialNumber = make([]byte, 14)
		} else {
			t.TransponderType = feig.TransponderISO15693
			t.IDDType = feig.IDDTypeUID
			t.SerialNumber = make([]byte, 8)
		}
		rng.Read(t.SerialNumber)
	}

	if keepaliveEvery < 1 {
		keepaliveEvery = 1
	}
	if maxTags < 0 {
		maxTags = 0
	}

	return &frameSimulator{
		rng:            rng,
		comAdr:         comAdr,
		maxTags:        maxTags,
		keepaliveEvery: keepaliveEvery,
		alarmRate:      alarmRate,
		population:     population,
	}
}

// next returns the next frame, stamping tag reads with now
func (s *frameSimulator) next(now time.Time) []byte {
	s.emitted++

	if s.emitted%s.keepaliveEvery == 0 {
		k := feig.KeepaliveFrame{ComAdr: s.comAdr}
		if s.alarmRate > 0 && s.rng.Float64() < s.alarmRate {
			alarmsA := []uint8{feig.MaskTempAlarm, feig.MaskFalsePower, feig.MaskWrongAntennaImpedance, feig.MaskNoise}
			if n := s.rng.Intn(len(alarmsA) + 1); n < len(alarmsA) {
				k.FlagsA = alarmsA[n]
			} else {
				k.FlagsB = feig.MaskDCPowerError
			}
		}
		return feig.EncodeKeepalive(k)
	}

	d := feig.DataFrame{ComAdr: s.comAdr}
	n := 0
	if s.maxTags > 0 {
		n = s.rng.Intn(s.maxTags) + 1
	}
	for i := 0; i < n; i++ {
		t := s.population[s.rng.Intn(len(s.population))]
		t.Time = uint32(now.Unix())
		d.Tags = append(d.Tags, t)
	}
	return feig.EncodeData(d)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simInterval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := newFrameSimulator(seed, simComAdr, simMaxTags, simKeepaliveEvery, simAlarmRate)

	var out io.Writer
	if simStdout {
		out = hexLineWriter{w: cmd.OutOrStdout()}
	} else {
		conn, connInfo, err := OpenConnection(cmd.Context(), cfg.Connection)
		if err != nil {
			return err
		}
		defer conn.Close()
		out = conn
		logger.Info("simulating reader", zap.String("connection", connInfo), zap.Int64("seed", seed))
	}

	ctx := cmd.Context()
	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()

	for i := 0; simCount == 0 || i < simCount; i++ {
		frame := sim.next(time.Now())
		if _, err := out.Write(frame); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		logger.Debug("frame emitted", zap.Int("n", i+1), zap.Int("size", len(frame)))

		if simCount != 0 && i == simCount-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// hexLineWriter prints each written frame as one hex line
type hexLineWriter struct {
	w io.Writer
}

func (h hexLineWriter) Write(p []byte) (int, error) {
	if _, err := fmt.Fprintln(h.w, hex.EncodeToString(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}
