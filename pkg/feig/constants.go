// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package feig decodes the binary frames emitted by Feig fixed RFID readers.
//
// A frame is classified as an inventory report (Data), a liveness heartbeat
// (Keepalive), or an opaque fallback (Generic). The package also provides
// the CRC used on the wire, a frame encoder, stream reassembly, CBOR capture
// files, and the formatting, validation and statistics helpers used by the
// feigstat CLI.
package feig

// Frame framing
const (
	StartByte = 0x02 // STX, also reported as the message code

	MinFrameSize = 7     // STX + length(2) + address + command + CRC(2)
	MaxFrameSize = 65535 // length field is a u16
)

// Command codes
const (
	CmdData      = 0x22
	CmdKeepalive = 0x6e
)

// Fixed sizes
const (
	KeepaliveFrameSize = 10
	DataHeaderSize     = 10 // up to and including the tag count
	CRCSize            = 2
	MACSize            = 6

	// record length + transponder type + IDD type + IDD length + time + MAC
	TagRecordOverhead = 2 + 1 + 1 + 1 + 4 + MACSize
)

// CRC-16 configuration (reflected)
const (
	crcPolynomial = 0x8408
	crcInitial    = 0xFFFF
)

// Keepalive flag masks. Temperature, false power, antenna impedance and
// noise live in flag byte A; DC power error in flag byte B.
const (
	MaskTempAlarm             = 0b1000_0000
	MaskFalsePower            = 0b0001_0000
	MaskWrongAntennaImpedance = 0b0000_0100
	MaskNoise                 = 0b0000_0010
	MaskDCPowerError          = 0b0000_0100
)

// Reader status values
const (
	StatusOK = 0x00
)
