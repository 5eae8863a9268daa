// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamFrames_ResyncAfterNoise(t *testing.T) {
	withGlobals(t)
	appMetrics = NewMetrics(prometheus.NewRegistry())

	stream := append([]byte{0xff, 0x00, 0x13}, joinFrames(t, keepaliveHex, dataHex, alarmKeepaliveHex)...)
	conn := newFakeConn(stream)

	var kinds []feig.Kind
	var skippedAt []uint64
	total, err := streamFrames(context.Background(), conn, func(frame []byte, skipped uint64) error {
		kinds = append(kinds, inspect(time.Now(), frame).message.Kind())
		skippedAt = append(skippedAt, skipped)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []feig.Kind{feig.KindKeepalive, feig.KindData, feig.KindKeepalive}, kinds)
	assert.Equal(t, []uint64{3, 3, 3}, skippedAt)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, 3.0, testutil.ToFloat64(appMetrics.SkippedBytes))
	assert.Equal(t, 2.0, testutil.ToFloat64(appMetrics.Frames.WithLabelValues("keepalive")))
}

func TestStreamFrames_TruncatedTail(t *testing.T) {
	withGlobals(t)
	appMetrics = NewMetrics(prometheus.NewRegistry())

	stream := joinFrames(t, keepaliveHex)
	stream = append(stream, mustHex(t, dataHex)[:12]...)

	var frames int
	total, err := streamFrames(context.Background(), newFakeConn(stream), func(frame []byte, skipped uint64) error {
		frames++
		assert.Zero(t, skipped)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, frames)
	assert.Equal(t, uint64(12), total, "the tail is skipped after the last frame")
	assert.Equal(t, 12.0, testutil.ToFloat64(appMetrics.SkippedBytes))
}

func TestStreamFrames_FalseStart(t *testing.T) {
	withGlobals(t)

	// STX with a length far beyond the frames that follow it
	stream := append([]byte{0x02, 0x01, 0x00}, joinFrames(t, keepaliveHex, dataHex, keepaliveHex)...)

	var kinds []feig.Kind
	total, err := streamFrames(context.Background(), newFakeConn(stream), func(frame []byte, skipped uint64) error {
		kinds = append(kinds, feig.Classify(frame).Kind())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []feig.Kind{feig.KindKeepalive, feig.KindData, feig.KindKeepalive}, kinds)
	assert.Equal(t, uint64(3), total)
}

func TestStreamFrames_HandlerErrorStops(t *testing.T) {
	withGlobals(t)

	stop := errors.New("stop")
	var frames int
	_, err := streamFrames(context.Background(), newFakeConn(joinFrames(t, keepaliveHex, keepaliveHex)), func(frame []byte, skipped uint64) error {
		frames++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, frames)
}

func TestStreamFrames_StrictCRC(t *testing.T) {
	withGlobals(t)
	cfg.Connection.StrictCRC = true

	var kinds []feig.Kind
	_, err := streamFrames(context.Background(), newFakeConn(joinFrames(t, badCRCKeepaliveHex, keepaliveHex)), func(frame []byte, skipped uint64) error {
		kinds = append(kinds, feig.Classify(frame).Kind())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []feig.Kind{feig.KindKeepalive}, kinds)
}

func TestStreamFrames_CancelClosesConnection(t *testing.T) {
	withGlobals(t)

	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn(joinFrames(t, keepaliveHex, keepaliveHex, keepaliveHex))

	var frames int
	_, err := streamFrames(ctx, conn, func(frame []byte, skipped uint64) error {
		frames++
		cancel()
		return nil
	})
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, frames, 1)
	assert.Eventually(t, conn.closed.Load, time.Second, 10*time.Millisecond)
}

func TestInspection_Synced(t *testing.T) {
	withGlobals(t)

	assert.True(t, inspect(time.Now(), mustHex(t, keepaliveHex)).synced())
	assert.True(t, inspect(time.Now(), mustHex(t, dataHex)).synced())
	assert.False(t, inspect(time.Now(), mustHex(t, badCRCKeepaliveHex)).synced())

	in := inspect(time.Now(), []byte{0x02, 0x00, 0x07, 0x00, 0x99, 0x00, 0x00})
	assert.False(t, in.synced())
	assert.Error(t, in.cause)
	assert.Equal(t, feig.KindGeneric, in.message.Kind())
}
