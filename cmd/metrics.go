// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the frame counters exported to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Frames       *prometheus.CounterVec // labels: kind
	CRCErrors    *prometheus.CounterVec // labels: kind
	TagReads     *prometheus.CounterVec // labels: transponder
	Alarms       *prometheus.CounterVec // labels: alarm
	SkippedBytes prometheus.Counter
}

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers and returns the frame counters
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feigstat_frames_total",
			Help: "Frames classified, by kind.",
		}, []string{"kind"}),
		CRCErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feigstat_crc_errors_total",
			Help: "Frames whose checksum did not verify, by kind.",
		}, []string{"kind"}),
		TagReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feigstat_tag_reads_total",
			Help: "Tag records decoded from data frames, by transponder type.",
		}, []string{"transponder"}),
		Alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feigstat_keepalive_alarms_total",
			Help: "Alarm flags raised in keepalive frames.",
		}, []string{"alarm"}),
		SkippedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feigstat_skipped_bytes_total",
			Help: "Bytes discarded while searching for frame starts.",
		}),
	}
	reg.MustRegister(m.Frames, m.CRCErrors, m.TagReads, m.Alarms, m.SkippedBytes)
	return m
}

// Observe counts one classified message
func (m *Metrics) Observe(msg feig.Message) {
	if m == nil {
		return
	}

	kind := msg.Kind().String()
	m.Frames.WithLabelValues(kind).Inc()

	switch v := msg.(type) {
	case *feig.Data:
		if !v.CorrectCRC {
			m.CRCErrors.WithLabelValues(kind).Inc()
		}
		for _, t := range v.Tags {
			m.TagReads.WithLabelValues(t.TransponderType.String()).Inc()
		}
	case *feig.Keepalive:
		if !v.CorrectCRC {
			m.CRCErrors.WithLabelValues(kind).Inc()
		}
		for _, a := range v.Alarms() {
			m.Alarms.WithLabelValues(a).Inc()
		}
	}
}

// AddSkipped counts bytes dropped by the frame reader
func (m *Metrics) AddSkipped(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.SkippedBytes.Add(float64(n))
}

// serveMetrics exposes reg on addr until ctx is done
func serveMetrics(ctx context.Context, addr, path string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr), zap.String("path", path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
