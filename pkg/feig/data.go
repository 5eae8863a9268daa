// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import "fmt"

// DecodeData consumes one inventory frame from the front of b.
//
// Layout after the common header: two reserved bytes, the tag count (u16
// BE), count tag records and the CRC (u16 LE). Either every tag decodes or
// the frame fails as a whole.
func DecodeData(b []byte) (*Data, []byte, error) {
	start := b

	h, b, err := takeHeader(b, CmdData)
	if err != nil {
		return nil, b, err
	}

	var reserved []byte
	if reserved, b, err = Take(b, 2, "reserved"); err != nil {
		return nil, b, err
	}

	var count uint16
	if count, b, err = TakeU16BE(b, "tag count"); err != nil {
		return nil, b, err
	}

	// Each record needs at least TagRecordOverhead bytes, so a count the
	// buffer cannot possibly hold fails before allocating for it.
	capHint := int(count)
	if maxTags := len(b) / TagRecordOverhead; capHint > maxTags {
		capHint = maxTags
	}
	tags := make([]TagRead, 0, capHint)
	for i := 0; i < int(count); i++ {
		var tr TagRead
		if tr, b, err = DecodeTagRead(b); err != nil {
			return nil, b, fmt.Errorf("tag %d of %d: %w", i+1, count, err)
		}
		tags = append(tags, tr)
	}

	var crc uint16
	if crc, b, err = TakeU16LE(b, "crc"); err != nil {
		return nil, b, err
	}

	raw := cloneBytes(start[:len(start)-len(b)])

	return &Data{
		Raw:         raw,
		MessageCode: h.messageCode,
		Length:      h.length,
		ComAdr:      h.comAdr,
		CommandCode: h.commandCode,
		Status:      h.status,
		Reserved:    [2]byte{reserved[0], reserved[1]},
		Tags:        tags,
		CRC:         crc,
		CorrectCRC:  frameCRCMatches(raw, crc),
	}, b, nil
}
