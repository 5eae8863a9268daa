// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureRecord is one frame as it came off the link
type CaptureRecord struct {
	Timestamp int64  `cbor:"1,keyasint"` // unix nanoseconds
	Source    string `cbor:"2,keyasint,omitempty"`
	Frame     []byte `cbor:"3,keyasint"`
}

// NewCaptureRecord stamps frame with the given receive time
func NewCaptureRecord(at time.Time, source string, frame []byte) CaptureRecord {
	return CaptureRecord{
		Timestamp: at.UnixNano(),
		Source:    source,
		Frame:     cloneBytes(frame),
	}
}

// Time returns the receive time of the record
func (r CaptureRecord) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}

// CaptureWriter appends records to a CBOR sequence
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a capture writer on w
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Write appends one record
func (cw *CaptureWriter) Write(rec CaptureRecord) error {
	if err := cw.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// CaptureReader reads records back from a CBOR sequence
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a capture reader on r
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF after the last one
func (cr *CaptureReader) Next() (CaptureRecord, error) {
	var rec CaptureRecord
	if err := cr.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return CaptureRecord{}, io.EOF
		}
		return CaptureRecord{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}
