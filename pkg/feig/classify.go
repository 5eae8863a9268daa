// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package feig

import (
	"errors"
	"fmt"
)

// candidate is one frame shape the classifier tries, in order
type candidate struct {
	kind    Kind
	command uint8
	decode  func([]byte) (Message, error)
}

// Data is tried first so a buffer matching both shapes classifies as Data;
// the distinct command codes keep the shapes apart for valid input.
var candidates = []candidate{
	{
		kind:    KindData,
		command: CmdData,
		decode: func(b []byte) (Message, error) {
			d, _, err := DecodeData(b)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	},
	{
		kind:    KindKeepalive,
		command: CmdKeepalive,
		decode: func(b []byte) (Message, error) {
			k, _, err := DecodeKeepalive(b)
			if err != nil {
				return nil, err
			}
			return k, nil
		},
	},
}

// Classify decodes b as the first matching frame shape, falling back to
// Generic. It never fails.
func Classify(b []byte) Message {
	m, _ := Explain(b)
	return m
}

// Explain is Classify plus the reasons every candidate was rejected.
// The error is nil unless the result is Generic.
func Explain(b []byte) (Message, error) {
	var errs []error
	for _, c := range candidates {
		m, err := c.decode(b)
		if err == nil {
			return m, nil
		}
		errs = append(errs, fmt.Errorf("%s (0x%02x): %w", c.kind, c.command, err))
	}
	return NewGeneric(b), errors.Join(errs...)
}
