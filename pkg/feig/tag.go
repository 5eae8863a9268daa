// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"fmt"
	"net"
)

// TransponderType identifies the air interface of a tag. Values outside the
// named constants are kept verbatim and reported as unknown.
type TransponderType uint8

// Transponder type values
const (
	TransponderICode1       TransponderType = 0x01
	TransponderISO15693     TransponderType = 0x03
	TransponderISO18000_3M3 TransponderType = 0x84
)

// Known reports whether t is one of the named transponder types
func (t TransponderType) Known() bool {
	switch t {
	case TransponderICode1, TransponderISO15693, TransponderISO18000_3M3:
		return true
	}
	return false
}

func (t TransponderType) String() string {
	switch t {
	case TransponderICode1:
		return "ICode1"
	case TransponderISO15693:
		return "Iso15693Tag"
	case TransponderISO18000_3M3:
		return "Iso18000_3M3"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// IDDType identifies how the tag identifier should be read
type IDDType uint8

// ID-descriptor type values
const (
	IDDTypeEPC IDDType = 0x00
	IDDTypeUID IDDType = 0x02
)

// Known reports whether t is one of the named ID-descriptor types
func (t IDDType) Known() bool {
	return t == IDDTypeEPC || t == IDDTypeUID
}

func (t IDDType) String() string {
	switch t {
	case IDDTypeEPC:
		return "EPC"
	case IDDTypeUID:
		return "UID"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// TagRead is one transponder observation inside a Data frame
type TagRead struct {
	RecordLength    uint16
	TransponderType TransponderType
	IDDType         IDDType
	IDDLength       uint8
	SerialNumber    []byte
	Time            uint32
	MAC             string
}

// ExpectedRecordLength is the record length implied by the identifier size
func (t TagRead) ExpectedRecordLength() int {
	return TagRecordOverhead + int(t.IDDLength)
}

// DecodeTagRead consumes one tag record from the front of b. The declared
// record length is stored but the per-field reads define what is consumed.
func DecodeTagRead(b []byte) (TagRead, []byte, error) {
	var tr TagRead
	var err error
	var raw uint8

	if tr.RecordLength, b, err = TakeU16BE(b, "tag record length"); err != nil {
		return TagRead{}, b, err
	}
	if raw, b, err = TakeU8(b, "transponder type"); err != nil {
		return TagRead{}, b, err
	}
	tr.TransponderType = TransponderType(raw)
	if raw, b, err = TakeU8(b, "idd type"); err != nil {
		return TagRead{}, b, err
	}
	tr.IDDType = IDDType(raw)
	if tr.IDDLength, b, err = TakeU8(b, "idd length"); err != nil {
		return TagRead{}, b, err
	}

	var idd []byte
	if idd, b, err = Take(b, int(tr.IDDLength), "idd"); err != nil {
		return TagRead{}, b, err
	}
	tr.SerialNumber = cloneBytes(idd)

	if tr.Time, b, err = TakeU32BE(b, "tag time"); err != nil {
		return TagRead{}, b, err
	}

	var mac []byte
	if mac, b, err = Take(b, MACSize, "mac"); err != nil {
		return TagRead{}, b, err
	}
	tr.MAC = net.HardwareAddr(mac).String()

	return tr, b, nil
}
