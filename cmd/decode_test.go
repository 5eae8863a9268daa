// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexFrame(t *testing.T) {
	want := mustHex(t, keepaliveHex)

	inputs := []string{
		keepaliveHex,
		"02 00 0a 00 6e 00 00 00 4b 69",
		"02:00:0a:00:6e:00:00:00:4b:69",
		"0x02000A006E0000004B69",
		"  02000a00\t6e0000004b69\n",
	}
	for _, in := range inputs {
		got, err := parseHexFrame(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseHexFrame("02000a0")
	assert.Error(t, err)
	_, err = parseHexFrame("zz")
	assert.Error(t, err)
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat(formatText))
	assert.NoError(t, checkFormat(formatJSON))
	assert.Error(t, checkFormat("yaml"))
}

func TestWriteMessage_Text(t *testing.T) {
	m := feig.Classify(mustHex(t, keepaliveHex))

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, formatText, "", time.Time{}, m))
	assert.Equal(t, "KEEPALIVE (0x6E) adr=0 status=OK len=10 flags=00:00 crc=0x694B OK\n  Alarms: none\n", buf.String())

	buf.Reset()
	at := time.Date(2025, 3, 4, 13, 7, 9, 250*int(time.Millisecond), time.Local)
	require.NoError(t, writeMessage(&buf, formatText, "", at, m))
	assert.True(t, strings.HasPrefix(buf.String(), "[13:07:09.250] KEEPALIVE"), buf.String())
}

func TestWriteMessage_JSON(t *testing.T) {
	m := feig.Classify(mustHex(t, dataHex))

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, formatJSON, "", time.Now(), m))
	require.True(t, strings.HasSuffix(buf.String(), "\n"))

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, "data", obj["kind"])
	assert.Equal(t, true, obj["correct_crc"])
	require.Len(t, obj["data"], 1)
}

func TestWriteMessage_Envelope(t *testing.T) {
	m := feig.Classify(mustHex(t, alarmKeepaliveHex))

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, formatJSON, "dock-3", time.Time{}, m))

	var env struct {
		Role string                 `json:"role"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "dock-3", env.Role)
	assert.Equal(t, "keepalive", env.Data["kind"])
	assert.Equal(t, true, env.Data["flag_dc_power_error"])
}

func TestDecodeOne_Explain(t *testing.T) {
	withGlobals(t)
	decodeExplain = true

	var buf bytes.Buffer
	require.NoError(t, decodeOne(&buf, badCRCKeepaliveHex))
	out := buf.String()
	assert.Contains(t, out, "crc=0x6A4B BAD")
	assert.Contains(t, out, "  Issue 1: [")
	assert.Contains(t, out, "KEEPALIVE CRC mismatch: wire 0x6A4B, computed 0x694B")
	assert.NotContains(t, out, "Rejected")

	buf.Reset()
	require.NoError(t, decodeOne(&buf, "0200070099"))
	out = buf.String()
	assert.True(t, strings.HasPrefix(out, "GENERIC len=5"), out)
	assert.Contains(t, out, "  Rejected: data (0x22):")
	assert.Contains(t, out, "  Rejected: keepalive (0x6e):")
	assert.Contains(t, out, "Unrecognized frame (5 bytes)")
}

func TestDecodeOne_ExplainIgnoredForJSON(t *testing.T) {
	withGlobals(t)
	decodeExplain = true
	outputFormat = formatJSON

	var buf bytes.Buffer
	require.NoError(t, decodeOne(&buf, "0200070099"))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "Rejected")
}

func TestRunDecode_Args(t *testing.T) {
	withGlobals(t)

	var buf bytes.Buffer
	decodeCmd.SetOut(&buf)
	t.Cleanup(func() { decodeCmd.SetOut(nil) })

	require.NoError(t, runDecode(decodeCmd, []string{keepaliveHex, multiTagDataHex}))
	out := buf.String()
	assert.Contains(t, out, "KEEPALIVE (0x6E)")
	assert.Contains(t, out, "DATA (0x22) adr=0 status=OK len=70 tags=2 crc=0x8CEA OK")
	assert.Contains(t, out, "id=3000201604050000000000002018")
	assert.Contains(t, out, "id=3400000874000000000000001328")

	assert.Error(t, runDecode(decodeCmd, []string{"not hex"}))
}

func TestRunDecode_Stdin(t *testing.T) {
	withGlobals(t)
	outputFormat = formatJSON

	input := strings.Join([]string{
		"# captured at the dock door",
		keepaliveHex,
		"",
		"02 00 0a 00 6e 00 96 04 e2 62",
	}, "\n")

	var buf bytes.Buffer
	decodeCmd.SetIn(strings.NewReader(input))
	decodeCmd.SetOut(&buf)
	t.Cleanup(func() {
		decodeCmd.SetIn(nil)
		decodeCmd.SetOut(nil)
	})

	require.NoError(t, runDecode(decodeCmd, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Contains(t, l, `"kind":"keepalive"`)
	}
	assert.Contains(t, lines[1], `"flag_noise":true`)
}

func TestRunDecode_UnknownFormat(t *testing.T) {
	withGlobals(t)
	outputFormat = "xml"
	assert.Error(t, runDecode(decodeCmd, []string{keepaliveHex}))
}
