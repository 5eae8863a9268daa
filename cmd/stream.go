// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"go.uber.org/zap"
)

// inspection is one frame after classification and validation
type inspection struct {
	received  time.Time
	message   feig.Message
	anomalies []feig.ValidationError
	cause     error // why the frame fell back to Generic, nil otherwise
}

// synced reports whether the frame proves the stream is aligned on frame
// boundaries
func (in inspection) synced() bool {
	switch m := in.message.(type) {
	case *feig.Data:
		return m.CorrectCRC
	case *feig.Keepalive:
		return m.CorrectCRC
	default:
		return false
	}
}

// inspect classifies and validates a frame and counts it in the metrics
func inspect(at time.Time, frame []byte) inspection {
	msg, cause := feig.Explain(frame)
	appMetrics.Observe(msg)
	return inspection{
		received:  at,
		message:   msg,
		anomalies: feig.ValidateMessage(msg),
		cause:     cause,
	}
}

// frameHandler is called for each frame cut from the stream. skipped is the
// running total of bytes discarded by the frame reader.
type frameHandler func(frame []byte, skipped uint64) error

// streamFrames reads frames from conn until the connection closes or ctx is
// cancelled, and returns the final count of skipped bytes. Cancellation closes
// conn to unblock the pending read.
func streamFrames(ctx context.Context, conn Connection, handle frameHandler) (uint64, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	var opts []feig.ReaderOption
	if cfg.Connection.StrictCRC {
		opts = append(opts, feig.WithStrictCRC())
	}
	fr := feig.NewFrameReader(conn, opts...)

	var reported uint64
	for {
		frame, err := fr.Next()
		if skipped := fr.Skipped(); skipped > reported {
			appMetrics.AddSkipped(skipped - reported)
			reported = skipped
		}

		if err != nil {
			switch {
			case ctx.Err() != nil:
				return reported, nil
			case errors.Is(err, feig.ErrFrameTooShort):
				logger.Warn("stream ended inside a frame", zap.Uint64("skipped", fr.Skipped()))
				continue
			case errors.Is(err, io.EOF), errors.Is(err, ErrConnectionClosed):
				logger.Info("connection closed", zap.Error(err))
				return reported, nil
			default:
				return reported, fmt.Errorf("read error: %w", err)
			}
		}

		if err := handle(frame, reported); err != nil {
			return reported, err
		}
	}
}
