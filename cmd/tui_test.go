// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		ms   uint64
		want string
	}{
		{0, "0 seconds"},
		{500, "0 seconds"},
		{1000, "1 second"},
		{45000, "45 seconds"},
		{61000, "1 minute and 1 second"},
		{120000, "2 minutes"},
		{3600000, "1 hour"},
		{3723000, "1 hour, 2 minutes, and 3 seconds"},
		{90061000, "1 day, 1 hour, 1 minute, and 1 second"},
		{2 * 86400000, "2 days"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.ms), "formatUptime(%d)", tt.ms)
	}
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	got, ok := next.(model)
	require.True(t, ok)
	return got
}

func TestModel_SyncCountsSkippedBytes(t *testing.T) {
	withGlobals(t)
	m := initialModel("Serial: /dev/null @ 38400 baud", 5, false)

	m = update(t, m, syncMsg{skipped: 4})
	assert.True(t, m.synchronized)
	assert.Equal(t, uint64(4), m.skipped)
	assert.Equal(t, uint64(4), m.stats.SkippedBytes)
	require.Len(t, m.errorLog, 1)
	assert.Contains(t, m.errorLog[0].message, "skipping 4 invalid bytes")

	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, keepaliveHex)), skipped: 6})
	assert.Equal(t, uint64(6), m.stats.SkippedBytes)
	assert.Equal(t, uint64(1), m.stats.TotalFrames)
}

func TestModel_TagRowsNewestFirst(t *testing.T) {
	withGlobals(t)
	m := initialModel("test", 5, false)

	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, dataHex))})
	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, multiTagDataHex))})

	require.Len(t, m.tagRows, 3)
	assert.Equal(t, "3400000874000000000000001328", m.tagRows[0][4])
	assert.Equal(t, "3000201604050000000000002018", m.tagRows[1][4])
	assert.Equal(t, "Iso18000_3M3", m.tagRows[2][2])
	assert.Equal(t, uint64(3), m.stats.TagReads)
	assert.Empty(t, m.errorLog, "valid frames are not logged unless showing all")

	for i := 0; i < maxTagRows; i++ {
		m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, multiTagDataHex))})
	}
	assert.Len(t, m.tagRows, maxTagRows)
}

func TestModel_KeepaliveAndAnomalies(t *testing.T) {
	withGlobals(t)
	m := initialModel("test", 5, true)

	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, keepaliveHex))})
	require.NotNil(t, m.lastKeepalive)
	assert.Empty(t, m.lastKeepalive.alarms)
	require.Len(t, m.errorLog, 1)
	assert.Equal(t, "KEEPALIVE (valid)", m.errorLog[0].message)

	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, alarmKeepaliveHex))})
	assert.Len(t, m.lastKeepalive.alarms, 5)
	last := m.errorLog[len(m.errorLog)-1]
	assert.False(t, last.isError, "alarms are warnings")
	assert.Contains(t, last.message, "Reader alarm")

	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, badCRCKeepaliveHex))})
	last = m.errorLog[len(m.errorLog)-1]
	assert.True(t, last.isError)
	assert.Contains(t, last.message, "CRC mismatch")
	assert.Equal(t, uint64(1), m.stats.CRCErrors)
}

func TestModel_StreamEnd(t *testing.T) {
	withGlobals(t)
	m := initialModel("test", 5, false)

	m = update(t, m, streamEndMsg{err: errors.New("read error: device gone")})
	assert.True(t, m.streamEnded)
	assert.Error(t, m.streamErr)
	assert.True(t, m.errorLog[0].isError)
	assert.Contains(t, m.View(), "Stream ended")
}

func TestModel_StreamEndCountsSkippedTail(t *testing.T) {
	withGlobals(t)
	m := initialModel("test", 5, false)

	m = update(t, m, syncMsg{skipped: 4})
	m = update(t, m, streamEndMsg{skipped: 16})
	assert.Equal(t, uint64(16), m.stats.SkippedBytes)
	assert.True(t, m.streamEnded)
}

func TestModel_Quit(t *testing.T) {
	withGlobals(t)
	m := initialModel("test", 5, false)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
	assert.True(t, next.(model).quitting)
	assert.Equal(t, "Shutting down...\n", next.View())
}

func TestModel_View(t *testing.T) {
	withGlobals(t)
	m := initialModel("WebSocket: ws://bridge.local/feig", 5, false)

	assert.Contains(t, m.View(), "Waiting for synchronization")

	m = update(t, m, syncMsg{})
	m = update(t, m, frameMsg{inspection: inspect(testTime, mustHex(t, multiTagDataHex))})
	view := m.View()
	assert.Contains(t, view, "FEIGSTAT")
	assert.Contains(t, view, "ws://bridge.local/feig")
	assert.Contains(t, view, "Synchronized")
}
