// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"fmt"
	"time"
)

// Statistics tracks frame counts and anomaly rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	DataFrames       uint64
	KeepaliveFrames  uint64
	GenericFrames    uint64
	TagReads         uint64
	ValidFrames      uint64
	CRCErrors        uint64
	LengthMismatches uint64
	RecordLengths    uint64
	UnknownTypes     uint64
	Alarms           uint64
	StatusErrors     uint64
	SkippedBytes     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	TagRate   float64 // tags/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a classified message and its anomalies
func (s *Statistics) Update(m Message, anomalies []ValidationError) {
	s.TotalFrames++

	switch msg := m.(type) {
	case *Data:
		s.DataFrames++
		s.TagReads += uint64(len(msg.Tags))
	case *Keepalive:
		s.KeepaliveFrames++
	case *Generic:
		s.GenericFrames++
	}

	valid := true
	for _, a := range anomalies {
		switch a.Type {
		case AnomalyCRCError:
			s.CRCErrors++
		case AnomalyLengthMismatch:
			s.LengthMismatches++
		case AnomalyRecordLength:
			s.RecordLengths++
		case AnomalyUnknownTransponder, AnomalyUnknownIDD:
			s.UnknownTypes++
		case AnomalyAlarm:
			s.Alarms++
		case AnomalyReaderStatus:
			s.StatusErrors++
		}
		valid = false
	}
	if valid {
		s.ValidFrames++
	}

	s.LastUpdateTime = time.Now()
}

// AddSkipped records bytes dropped while searching for frame starts
func (s *Statistics) AddSkipped(n uint64) {
	s.SkippedBytes += n
}

// ErrorCount returns the number of frames that were not healthy
func (s *Statistics) ErrorCount() uint64 {
	return s.TotalFrames - s.ValidFrames
}

// CalculateRates calculates frame, tag and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.TagRate = float64(s.TagReads) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))
	result += fmt.Sprintf("  Data:          %8d\n", s.DataFrames)
	result += fmt.Sprintf("  Keepalive:     %8d\n", s.KeepaliveFrames)
	if s.GenericFrames > 0 {
		result += fmt.Sprintf("Unrecognized:    %8d (%.1f%%)\n", s.GenericFrames, percent(s.GenericFrames))
	}
	result += fmt.Sprintf("Tag Reads:       %8d\n", s.TagReads)

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, percent(s.CRCErrors))
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Length Mismatch: %8d\n", s.LengthMismatches)
	}
	if s.RecordLengths > 0 {
		result += fmt.Sprintf("Record Length:   %8d\n", s.RecordLengths)
	}
	if s.UnknownTypes > 0 {
		result += fmt.Sprintf("Unknown Types:   %8d\n", s.UnknownTypes)
	}
	if s.Alarms > 0 {
		result += fmt.Sprintf("Reader Alarms:   %8d\n", s.Alarms)
	}
	if s.StatusErrors > 0 {
		result += fmt.Sprintf("Status Errors:   %8d\n", s.StatusErrors)
	}
	if s.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.SkippedBytes)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Tag Rate:        %8.1f tags/sec\n", s.TagRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
