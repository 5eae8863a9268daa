// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
)

// Output formats shared by raw_log, decode and replay
const (
	formatText = "text"
	formatJSON = "json"
)

var (
	outputFormat string
	outputRole   string
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use %s or %s)", format, formatText, formatJSON)
	}
}

// writeMessage prints one message. Text output gets a timestamp prefix
// unless at is zero; JSON output is one object per line, wrapped in an
// envelope when role is set.
func writeMessage(w io.Writer, format, role string, at time.Time, m feig.Message) error {
	if format == formatJSON {
		var v interface{} = m
		if role != "" {
			v = feig.Envelope{Role: role, Data: m}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s frame: %w", m.Kind(), err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}

	if !at.IsZero() {
		if _, err := fmt.Fprintf(w, "[%s] ", at.Format("15:04:05.000")); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, feig.FormatMessage(m))
	return err
}
