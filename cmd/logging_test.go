// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{level: "", enabled: zapcore.InfoLevel},
		{level: "debug", enabled: zapcore.DebugLevel},
		{level: "INFO", enabled: zapcore.InfoLevel},
		{level: "warning", enabled: zapcore.WarnLevel},
		{level: "error", enabled: zapcore.ErrorLevel},
		{level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := NewLogger(LoggingConfig{Level: tt.level})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	_, err := NewLogger(LoggingConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_WritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feigstat.log")

	l, err := NewLogger(LoggingConfig{
		Level:  "info",
		Format: "json",
		File:   LogFileConfig{Filename: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	l.Info("frame decoded", zap.String("kind", "keepalive"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"frame decoded"`)
	assert.Contains(t, string(data), `"kind":"keepalive"`)
}
