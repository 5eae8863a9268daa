// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Connection is a byte link to a reader: a serial port or a WebSocket bridge
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned by reads on a WebSocket bridge that has
// gone away. The underlying cause is wrapped alongside it.
var ErrConnectionClosed = errors.New("websocket connection closed")

// serialLink adapts a serial port to Connection
type serialLink struct {
	serial.Port
}

// OpenSerialConnection opens portName at baudRate, 8N1
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return serialLink{Port: port}, nil
}

// wsLink presents the binary messages of a WebSocket as one byte stream.
// Message boundaries carry no meaning: a bridge may split a frame across
// messages or pack several frames into one.
type wsLink struct {
	conn    *websocket.Conn
	pending []byte
	err     error
}

func (w *wsLink) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		if w.err != nil {
			return 0, w.err
		}

		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return 0, w.err
		}
		if kind == websocket.BinaryMessage {
			w.pending = data
		}
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsLink) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsLink) Close() error {
	return w.conn.Close()
}

// WebSocketOptions configures a bridge connection
type WebSocketOptions struct {
	URL         string
	Username    string
	Password    string
	NoSSLVerify bool
}

// OpenWebSocketConnection dials a ws:// or wss:// bridge, sending HTTP Basic
// credentials when both username and password are set
func OpenWebSocketConnection(ctx context.Context, opts WebSocketOptions) (Connection, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.NoSSLVerify}
	}

	req := &http.Request{Header: http.Header{}}
	if opts.Username != "" && opts.Password != "" {
		req.SetBasicAuth(opts.Username, opts.Password)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	logger.Debug("dialing bridge", zap.String("url", u.Redacted()), zap.Bool("auth", opts.Username != ""))

	conn, resp, err := dialer.DialContext(dialCtx, opts.URL, req.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &wsLink{conn: conn}, nil
}

// GetPassword returns FEIGSTAT_PASSWORD, or asks for the password on the
// terminal. When stdin is not a terminal one line is read from it instead.
func GetPassword() (string, error) {
	if pw := os.Getenv("FEIGSTAT_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	if pw, err := term.ReadPassword(int(syscall.Stdin)); err == nil {
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection opens the link described by c. A WebSocket URL takes
// precedence over a serial port. The returned string describes the link for
// display.
func OpenConnection(ctx context.Context, c ConnectionConfig) (Connection, string, error) {
	switch {
	case c.URL != "":
		opts := WebSocketOptions{URL: c.URL, Username: c.Username, NoSSLVerify: c.NoSSLVerify}
		if c.Username != "" {
			pw, err := GetPassword()
			if err != nil {
				return nil, "", err
			}
			opts.Password = pw
		}

		conn, err := OpenWebSocketConnection(ctx, opts)
		if err != nil {
			return nil, "", err
		}
		return conn, "WebSocket: " + c.URL, nil

	case c.Port != "":
		conn, err := OpenSerialConnection(c.Port, c.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", c.Port, c.Baud), nil

	default:
		return nil, "", errors.New("either --port or --url must be specified")
	}
}
