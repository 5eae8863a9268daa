// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Observe(feig.Classify(mustHex(t, keepaliveHex)))
	m.Observe(feig.Classify(mustHex(t, alarmKeepaliveHex)))
	m.Observe(feig.Classify(mustHex(t, badCRCKeepaliveHex)))
	m.Observe(feig.Classify(mustHex(t, multiTagDataHex)))
	m.Observe(feig.Classify([]byte{0xde, 0xad}))
	m.AddSkipped(7)
	m.AddSkipped(0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Frames.WithLabelValues("keepalive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("generic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CRCErrors.WithLabelValues("keepalive")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CRCErrors), "only keepalive frames had a bad CRC")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TagReads.WithLabelValues("Iso18000_3M3")))
	assert.Equal(t, 5, testutil.CollectAndCount(m.Alarms))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Alarms.WithLabelValues(feig.AlarmDCPower)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.SkippedBytes))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe(feig.Classify(mustHex(t, keepaliveHex)))
		m.AddSkipped(3)
	})
}

func TestMetrics_Registry(t *testing.T) {
	reg := NewRegistry()
	NewMetrics(reg)

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"], "Go collector should be registered")
	assert.True(t, names["feigstat_skipped_bytes_total"])
}
