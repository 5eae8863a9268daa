// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBytes is returned when a field needs more bytes than remain
	ErrInsufficientBytes = errors.New("feig: insufficient bytes")

	// ErrWrongCommandCode is returned when a frame carries another decoder's command code
	ErrWrongCommandCode = errors.New("feig: wrong command code")
)

func short(field string, need, have int) error {
	return fmt.Errorf("%s: %w (need %d, have %d)", field, ErrInsufficientBytes, need, have)
}

// Take consumes n bytes from the front of b. The returned slice aliases b.
func Take(b []byte, n int, field string) ([]byte, []byte, error) {
	if n < 0 || len(b) < n {
		return nil, b, short(field, n, len(b))
	}
	return b[:n], b[n:], nil
}

// TakeU8 consumes a single byte
func TakeU8(b []byte, field string) (uint8, []byte, error) {
	if len(b) < 1 {
		return 0, b, short(field, 1, len(b))
	}
	return b[0], b[1:], nil
}

// TakeU16BE consumes a big-endian 16-bit value (lengths and counts)
func TakeU16BE(b []byte, field string) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, b, short(field, 2, len(b))
	}
	return binary.BigEndian.Uint16(b), b[2:], nil
}

// TakeU16LE consumes a little-endian 16-bit value (the frame CRC)
func TakeU16LE(b []byte, field string) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, b, short(field, 2, len(b))
	}
	return binary.LittleEndian.Uint16(b), b[2:], nil
}

// TakeU32BE consumes a big-endian 32-bit value
func TakeU32BE(b []byte, field string) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, b, short(field, 4, len(b))
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

// frameHeader holds the fields shared by every known frame shape
type frameHeader struct {
	messageCode uint8
	length      uint16
	comAdr      uint8
	commandCode uint8
	status      uint8
}

// takeHeader reads message code through status and checks the command code
func takeHeader(b []byte, wantCommand uint8) (frameHeader, []byte, error) {
	var h frameHeader
	var err error

	if h.messageCode, b, err = TakeU8(b, "message code"); err != nil {
		return h, b, err
	}
	if h.length, b, err = TakeU16BE(b, "length"); err != nil {
		return h, b, err
	}
	if h.comAdr, b, err = TakeU8(b, "com adr"); err != nil {
		return h, b, err
	}
	if h.commandCode, b, err = TakeU8(b, "command code"); err != nil {
		return h, b, err
	}
	if h.commandCode != wantCommand {
		return h, b, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrWrongCommandCode, h.commandCode, wantCommand)
	}
	if h.status, b, err = TakeU8(b, "status"); err != nil {
		return h, b, err
	}
	return h, b, nil
}

// cloneBytes returns a copy that never aliases the caller's buffer
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
