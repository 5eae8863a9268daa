// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

// DecodeKeepalive consumes one keepalive frame from the front of b.
// A checksum mismatch is reported through CorrectCRC, not as an error.
func DecodeKeepalive(b []byte) (*Keepalive, []byte, error) {
	start := b

	h, b, err := takeHeader(b, CmdKeepalive)
	if err != nil {
		return nil, b, err
	}

	var flags []byte
	if flags, b, err = Take(b, 2, "keepalive flags"); err != nil {
		return nil, b, err
	}

	var crc uint16
	if crc, b, err = TakeU16LE(b, "crc"); err != nil {
		return nil, b, err
	}

	raw := cloneBytes(start[:len(start)-len(b)])
	a, bb := flags[0], flags[1]

	return &Keepalive{
		Raw:         raw,
		MessageCode: h.messageCode,
		Length:      h.length,
		ComAdr:      h.comAdr,
		CommandCode: h.commandCode,
		Status:      h.status,
		FlagsA:      a,
		FlagsB:      bb,
		CRC:         crc,
		CorrectCRC:  frameCRCMatches(raw, crc),

		TempAlarm:             hasBits(a, MaskTempAlarm),
		FalsePower:            hasBits(a, MaskFalsePower),
		WrongAntennaImpedance: hasBits(a, MaskWrongAntennaImpedance),
		Noise:                 hasBits(a, MaskNoise),
		DCPowerError:          hasBits(bb, MaskDCPowerError),
	}, b, nil
}

func hasBits(v, mask uint8) bool {
	return v&mask == mask
}
