// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m Message) string {
	switch msg := m.(type) {
	case *Data:
		return formatData(msg)
	case *Keepalive:
		return formatKeepalive(msg)
	case *Generic:
		return fmt.Sprintf("%s len=%d\n  Raw: %s\n", FormatKind(KindGeneric), len(msg.Raw), formatHex(msg.Raw))
	default:
		return "UNKNOWN\n"
	}
}

// FormatKind returns the display name for a message kind
func FormatKind(k Kind) string {
	switch k {
	case KindData:
		return "DATA"
	case KindKeepalive:
		return "KEEPALIVE"
	default:
		return "GENERIC"
	}
}

// FormatStatus returns a display string for a reader status byte
func FormatStatus(status uint8) string {
	if status == StatusOK {
		return "OK"
	}
	return fmt.Sprintf("0x%02X", status)
}

// FormatCRC returns OK or BAD with the wire value
func FormatCRC(crc uint16, correct bool) string {
	if correct {
		return fmt.Sprintf("0x%04X OK", crc)
	}
	return fmt.Sprintf("0x%04X BAD", crc)
}

func formatData(d *Data) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s (0x%02X) adr=%d status=%s len=%d tags=%d crc=%s\n",
		FormatKind(KindData), d.CommandCode, d.ComAdr, FormatStatus(d.Status),
		d.Length, len(d.Tags), FormatCRC(d.CRC, d.CorrectCRC))

	for i, t := range d.Tags {
		fmt.Fprintf(&s, "  Tag %d: %s %s id=%s time=%d mac=%s\n",
			i+1, t.TransponderType, t.IDDType, hex.EncodeToString(t.SerialNumber), t.Time, t.MAC)
	}
	return s.String()
}

func formatKeepalive(k *Keepalive) string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s (0x%02X) adr=%d status=%s len=%d flags=%02X:%02X crc=%s\n",
		FormatKind(KindKeepalive), k.CommandCode, k.ComAdr, FormatStatus(k.Status),
		k.Length, k.FlagsA, k.FlagsB, FormatCRC(k.CRC, k.CorrectCRC))

	alarms := k.Alarms()
	if len(alarms) == 0 {
		s.WriteString("  Alarms: none\n")
	} else {
		fmt.Fprintf(&s, "  Alarms: %s\n", strings.Join(alarms, ", "))
	}
	return s.String()
}

// formatHex renders bytes as space-separated hex pairs
func formatHex(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}
