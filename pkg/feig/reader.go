// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// ErrFrameTooShort is returned when the stream ends on bytes that cannot
// complete a frame
var ErrFrameTooShort = errors.New("feig: stream ended inside a frame")

// FrameReader cuts a byte stream into frames using the STX byte and the
// big-endian length field that follows it.
type FrameReader struct {
	r         *bufio.Reader
	strictCRC bool
	skipped   uint64
}

// ReaderOption configures a FrameReader
type ReaderOption func(*FrameReader)

// WithStrictCRC makes the reader treat a CRC mismatch as loss of sync and
// resume the search one byte further on
func WithStrictCRC() ReaderOption {
	return func(fr *FrameReader) {
		fr.strictCRC = true
	}
}

// NewFrameReader creates a frame reader over r
func NewFrameReader(r io.Reader, opts ...ReaderOption) *FrameReader {
	fr := &FrameReader{
		// Peek needs room for the largest possible frame
		r: bufio.NewReaderSize(r, MaxFrameSize+1),
	}
	for _, opt := range opts {
		opt(fr)
	}
	return fr
}

// Skipped returns the number of bytes discarded while searching for frames
func (fr *FrameReader) Skipped() uint64 {
	return fr.skipped
}

// Next returns the next frame as a fresh slice. It returns io.EOF once the
// stream ends cleanly between frames, and ErrFrameTooShort if it ends
// inside one.
//
// A start byte and length are only a candidate. The candidate is dropped,
// and the search resumes one byte further on, when a complete frame with a
// valid CRC shows up inside its span before the span is complete, when the
// stream ends inside it, or when it fails its CRC and does not decode as
// Data or Keepalive either.
func (fr *FrameReader) Next() ([]byte, error) {
	for {
		hdr, err := fr.r.Peek(3)
		if err != nil {
			if len(hdr) > 0 && errors.Is(err, io.EOF) {
				fr.discard(len(hdr))
				return nil, ErrFrameTooShort
			}
			return nil, err
		}

		size := int(binary.BigEndian.Uint16(hdr[1:3]))
		if hdr[0] != StartByte || size < MinFrameSize {
			fr.discard(1)
			continue
		}

		frame, next, err := fr.await(size)
		switch {
		case errors.Is(err, io.EOF):
			fr.discard(1)
			continue
		case err != nil:
			return nil, err
		case next > 0:
			fr.discard(next)
			continue
		case !fr.accept(frame):
			fr.discard(1)
			continue
		}

		out := cloneBytes(frame)
		_, _ = fr.r.Discard(size)
		return out, nil
	}
}

// await blocks until size bytes are buffered and returns them. If a later
// start byte completes a frame with a valid CRC first, await returns its
// offset instead.
func (fr *FrameReader) await(size int) ([]byte, int, error) {
	var pending []int // offsets of later starts whose frames are incomplete
	scanned := 1

	for {
		buf, _ := fr.r.Peek(fr.r.Buffered())
		have := len(buf)
		if have >= size {
			return buf[:size], 0, nil
		}

		for ; scanned+3 <= have; scanned++ {
			if buf[scanned] == StartByte {
				pending = append(pending, scanned)
			}
		}

		kept := pending[:0]
		for _, at := range pending {
			n := int(binary.BigEndian.Uint16(buf[at+1 : at+3]))
			switch {
			case n < MinFrameSize:
			case at+n > have:
				kept = append(kept, at)
			case frameCRCMatches(buf[at:at+n], binary.LittleEndian.Uint16(buf[at+n-CRCSize:at+n])):
				return nil, at, nil
			}
		}
		pending = kept

		if _, err := fr.r.Peek(have + 1); err != nil {
			return nil, 0, err
		}
	}
}

// accept reports whether a complete candidate is returned as a frame
func (fr *FrameReader) accept(frame []byte) bool {
	wire := binary.LittleEndian.Uint16(frame[len(frame)-CRCSize:])
	if frameCRCMatches(frame, wire) {
		return true
	}
	if fr.strictCRC {
		return false
	}
	return Classify(frame).Kind() != KindGeneric
}

func (fr *FrameReader) discard(n int) {
	n, _ = fr.r.Discard(n)
	fr.skipped += uint64(n)
}
