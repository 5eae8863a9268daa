// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/hex"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Frames captured from a reader in notification mode
const (
	keepaliveHex       = "02000a006e0000004b69"
	alarmKeepaliveHex  = "02000a006e009604e262"
	badCRCKeepaliveHex = "02000a006e0000004b6a"
	dataHex            = "020029002200a1020001001d84000e34000008740000000000000013280013df75001c9b070957370e"
	multiTagDataHex    = "020046002200a1020002" +
		"001d84000e30002016040500000000000020180008a6f4001c9b070957" +
		"001d84000e34000008740000000000000013280008a6f4001c9b070957" +
		"ea8c"
)

var testTime = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// joinFrames concatenates hex frames into one byte stream
func joinFrames(t *testing.T, frames ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, f := range frames {
		buf.Write(mustHex(t, f))
	}
	return buf.Bytes()
}

// withGlobals resets the package state that commands share and restores it
// when the test ends
func withGlobals(t *testing.T) {
	t.Helper()

	savedCfg, savedLogger, savedMetrics := cfg, logger, appMetrics
	savedFormat, savedRole, savedExplain := outputFormat, outputRole, decodeExplain

	cfg = &Config{}
	logger = zap.NewNop()
	appMetrics = nil
	outputFormat = formatText
	outputRole = ""
	decodeExplain = false

	t.Cleanup(func() {
		cfg, logger, appMetrics = savedCfg, savedLogger, savedMetrics
		outputFormat, outputRole, decodeExplain = savedFormat, savedRole, savedExplain
	})
}

// fakeConn is a Connection over an in-memory stream
type fakeConn struct {
	*bytes.Reader
	written bytes.Buffer
	closed  atomic.Bool
}

func newFakeConn(b []byte) *fakeConn {
	return &fakeConn{Reader: bytes.NewReader(b)}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	return c.written.Write(p)
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}
