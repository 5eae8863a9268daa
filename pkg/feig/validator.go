// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"fmt"
	"strings"
)

// AnomalyType represents different kinds of frame anomalies
type AnomalyType int

const (
	AnomalyCRCError AnomalyType = iota
	AnomalyLengthMismatch
	AnomalyRecordLength
	AnomalyUnknownTransponder
	AnomalyUnknownIDD
	AnomalyAlarm
	AnomalyReaderStatus
	AnomalyUnrecognized
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyCRCError:
		return "crc_error"
	case AnomalyLengthMismatch:
		return "length_mismatch"
	case AnomalyRecordLength:
		return "record_length"
	case AnomalyUnknownTransponder:
		return "unknown_transponder"
	case AnomalyUnknownIDD:
		return "unknown_idd"
	case AnomalyAlarm:
		return "alarm"
	case AnomalyReaderStatus:
		return "reader_status"
	case AnomalyUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// ValidationError represents a frame anomaly. Anomalies never change the
// decoded message; they are reported next to it.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateMessage inspects a classified message for anomalies
// Returns a slice of validation errors (empty if the frame looks healthy)
func ValidateMessage(m Message) []ValidationError {
	errors := []ValidationError{}

	switch msg := m.(type) {
	case *Data:
		errors = append(errors, validateFrame(KindData, msg.Raw, msg.Length, msg.CRC, msg.CorrectCRC, msg.Status)...)
		for i, t := range msg.Tags {
			errors = append(errors, validateTagRead(i, t)...)
		}
	case *Keepalive:
		errors = append(errors, validateFrame(KindKeepalive, msg.Raw, msg.Length, msg.CRC, msg.CorrectCRC, msg.Status)...)
		if alarms := msg.Alarms(); len(alarms) > 0 {
			errors = append(errors, ValidationError{
				Type:    AnomalyAlarm,
				Message: fmt.Sprintf("Reader alarm: %s", strings.Join(alarms, ", ")),
				Details: map[string]interface{}{"alarms": alarms, "flags_a": msg.FlagsA, "flags_b": msg.FlagsB},
			})
		}
	case *Generic:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnrecognized,
			Message: fmt.Sprintf("Unrecognized frame (%d bytes)", len(msg.Raw)),
			Details: map[string]interface{}{"length": len(msg.Raw)},
		})
	}

	return errors
}

// validateFrame checks the fields shared by Data and Keepalive frames
func validateFrame(kind Kind, raw []byte, length uint16, crc uint16, correct bool, status uint8) []ValidationError {
	errors := []ValidationError{}

	if !correct {
		computed := uint16(0)
		if len(raw) >= CRCSize {
			computed = CalculateCRC(raw[:len(raw)-CRCSize])
		}
		errors = append(errors, ValidationError{
			Type:    AnomalyCRCError,
			Message: fmt.Sprintf("%s CRC mismatch: wire 0x%04X, computed 0x%04X", FormatKind(kind), crc, computed),
			Details: map[string]interface{}{"wire": crc, "computed": computed},
		})
	}

	if int(length) != len(raw) {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("%s length field %d does not match frame size %d", FormatKind(kind), length, len(raw)),
			Details: map[string]interface{}{"declared": int(length), "received": len(raw)},
		})
	}

	if status != StatusOK {
		errors = append(errors, ValidationError{
			Type:    AnomalyReaderStatus,
			Message: fmt.Sprintf("%s reader status 0x%02X", FormatKind(kind), status),
			Details: map[string]interface{}{"status": status},
		})
	}

	return errors
}

// validateTagRead checks one tag record of a Data frame
func validateTagRead(index int, t TagRead) []ValidationError {
	errors := []ValidationError{}

	if want := t.ExpectedRecordLength(); int(t.RecordLength) != want {
		errors = append(errors, ValidationError{
			Type:    AnomalyRecordLength,
			Message: fmt.Sprintf("Tag %d record length %d, expected %d", index+1, t.RecordLength, want),
			Details: map[string]interface{}{"tag": index + 1, "declared": int(t.RecordLength), "expected": want},
		})
	}

	if !t.TransponderType.Known() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownTransponder,
			Message: fmt.Sprintf("Tag %d transponder type %s", index+1, t.TransponderType),
			Details: map[string]interface{}{"tag": index + 1, "raw": uint8(t.TransponderType)},
		})
	}

	if !t.IDDType.Known() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownIDD,
			Message: fmt.Sprintf("Tag %d ID-descriptor type %s", index+1, t.IDDType),
			Details: map[string]interface{}{"tag": index + 1, "raw": uint8(t.IDDType)},
		})
	}

	return errors
}
