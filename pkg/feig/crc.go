// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

// CalculateCRC computes the Feig CRC-16 (preset 0xFFFF, polynomial 0x8408,
// LSB first) over data
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPolynomial
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// CheckCRC reports whether data checksums to expected
func CheckCRC(data []byte, expected uint16) bool {
	return CalculateCRC(data) == expected
}

// frameCRCMatches recomputes the checksum over raw minus its trailing CRC
// bytes and compares it with the value read from the wire.
func frameCRCMatches(raw []byte, wire uint16) bool {
	if len(raw) < CRCSize {
		return false
	}
	return CheckCRC(raw[:len(raw)-CRCSize], wire)
}
