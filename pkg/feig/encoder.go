// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"encoding/binary"
	"fmt"
	"net"
)

// KeepaliveFrame holds the fields needed to build a keepalive frame
type KeepaliveFrame struct {
	ComAdr uint8
	Status uint8
	FlagsA uint8
	FlagsB uint8
}

// TagRecord holds the fields needed to build one tag record
type TagRecord struct {
	TransponderType TransponderType
	IDDType         IDDType
	SerialNumber    []byte
	Time            uint32
	MAC             [MACSize]byte
}

// DataFrame holds the fields needed to build an inventory frame
type DataFrame struct {
	ComAdr   uint8
	Status   uint8
	Reserved [2]byte
	Tags     []TagRecord
}

// EncodeKeepalive builds a complete keepalive frame including its CRC
func EncodeKeepalive(k KeepaliveFrame) []byte {
	frame := make([]byte, 0, KeepaliveFrameSize)
	frame = append(frame, StartByte, 0, 0, k.ComAdr, CmdKeepalive, k.Status, k.FlagsA, k.FlagsB)
	return finishFrame(frame)
}

// EncodeTagRead builds one tag record. The record length is derived from
// the serial number size.
func EncodeTagRead(t TagRecord) []byte {
	if len(t.SerialNumber) > 0xFF {
		panic(fmt.Sprintf("feig: serial number too long: %d bytes (max 255)", len(t.SerialNumber)))
	}
	size := TagRecordOverhead + len(t.SerialNumber)
	rec := make([]byte, 0, size)
	rec = binary.BigEndian.AppendUint16(rec, uint16(size))
	rec = append(rec, uint8(t.TransponderType), uint8(t.IDDType), uint8(len(t.SerialNumber)))
	rec = append(rec, t.SerialNumber...)
	rec = binary.BigEndian.AppendUint32(rec, t.Time)
	rec = append(rec, t.MAC[:]...)
	return rec
}

// EncodeData builds a complete inventory frame including its CRC
func EncodeData(d DataFrame) []byte {
	if len(d.Tags) > 0xFFFF {
		panic(fmt.Sprintf("feig: too many tags: %d (max 65535)", len(d.Tags)))
	}
	frame := make([]byte, 0, DataHeaderSize+len(d.Tags)*(TagRecordOverhead+12)+CRCSize)
	frame = append(frame, StartByte, 0, 0, d.ComAdr, CmdData, d.Status, d.Reserved[0], d.Reserved[1])
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(d.Tags)))
	for _, t := range d.Tags {
		frame = append(frame, EncodeTagRead(t)...)
	}
	return finishFrame(frame)
}

// finishFrame patches the length field and appends the little-endian CRC
func finishFrame(frame []byte) []byte {
	total := len(frame) + CRCSize
	if total > MaxFrameSize {
		panic(fmt.Sprintf("feig: frame too large: %d bytes (max %d)", total, MaxFrameSize))
	}
	binary.BigEndian.PutUint16(frame[1:3], uint16(total))
	crc := CalculateCRC(frame)
	return binary.LittleEndian.AppendUint16(frame, crc)
}

// ParseMAC converts a colon-separated hardware address back to its 6 bytes
func ParseMAC(s string) ([MACSize]byte, error) {
	var out [MACSize]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return out, fmt.Errorf("invalid hardware address %q: %w", s, err)
	}
	if len(hw) != MACSize {
		return out, fmt.Errorf("invalid hardware address %q: %d bytes (want %d)", s, len(hw), MACSize)
	}
	copy(out[:], hw)
	return out, nil
}

// TagRecordFrom converts a decoded TagRead back into encodable form
func TagRecordFrom(t TagRead) (TagRecord, error) {
	mac, err := ParseMAC(t.MAC)
	if err != nil {
		return TagRecord{}, err
	}
	return TagRecord{
		TransponderType: t.TransponderType,
		IDDType:         t.IDDType,
		SerialNumber:    t.SerialNumber,
		Time:            t.Time,
		MAC:             mac,
	}, nil
}
