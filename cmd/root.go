// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	strictCRC bool

	// Diagnostics flags
	logLevel    string
	logFormat   string
	logFile     string
	metricsAddr string
)

var (
	cfg        = &Config{}
	logger     = zap.NewNop()
	appMetrics *Metrics
)

var rootCmd = &cobra.Command{
	Use:   "feigstat",
	Short: "Feig RFID Reader Frame Analyzer",
	Long: `Feigstat - A CLI tool for monitoring and analyzing frames from Feig RFID readers.

Frames are cut from the byte stream, classified as inventory data, keepalive
or unrecognized, and then printed, validated, counted, recorded or forwarded.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 38400]
  WebSocket: --url ws://host/path [--username user]

Every flag can also be set in a config file (--config, FEIGSTAT_CONFIG or
./feigstat.yaml) or through FEIGSTAT_* environment variables, for example
FEIGSTAT_CONNECTION_PORT or FEIGSTAT_LOGGING_LEVEL.

For WebSocket authentication, the password is read from the FEIGSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML, TOML or JSON)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 38400, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVar(&strictCRC, "strict-crc", false, "Treat frames with a bad CRC as noise while searching for frame starts")

	// Diagnostics flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rolling file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
}

// setup loads configuration, builds the logger and starts the metrics endpoint
func setup(cmd *cobra.Command, args []string) error {
	c, err := LoadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	l, err := NewLogger(c.Logging)
	if err != nil {
		return err
	}

	cfg, logger = c, l

	if c.Metrics.Addr != "" {
		reg := NewRegistry()
		appMetrics = NewMetrics(reg)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		go serveMetrics(ctx, c.Metrics.Addr, c.Metrics.Path, reg)
	}

	return nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
