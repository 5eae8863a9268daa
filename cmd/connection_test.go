// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Thermoquad/feigstat/pkg/feig"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBridge starts a WebSocket server that sends msgs and closes
func newBridge(t *testing.T, check func(r *http.Request), msgs ...func(*websocket.Conn) error) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for _, send := range msgs {
			if err := send(c); err != nil {
				return
			}
		}
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func binary(b []byte) func(*websocket.Conn) error {
	return func(c *websocket.Conn) error { return c.WriteMessage(websocket.BinaryMessage, b) }
}

func TestWSLink_Reassembly(t *testing.T) {
	withGlobals(t)

	keepalive := mustHex(t, keepaliveHex)
	data := mustHex(t, dataHex)

	url := newBridge(t, nil,
		func(c *websocket.Conn) error { return c.WriteMessage(websocket.TextMessage, []byte("hello")) },
		binary(keepalive[:4]),
		binary(append(append([]byte(nil), keepalive[4:]...), data[:20]...)),
		binary(data[20:]),
	)

	conn, err := OpenWebSocketConnection(context.Background(), WebSocketOptions{URL: url})
	require.NoError(t, err)
	defer conn.Close()

	var kinds []feig.Kind
	_, err = streamFrames(context.Background(), conn, func(frame []byte, skipped uint64) error {
		kinds = append(kinds, feig.Classify(frame).Kind())
		assert.Zero(t, skipped)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []feig.Kind{feig.KindKeepalive, feig.KindData}, kinds)
}

func TestWSLink_ClosedError(t *testing.T) {
	url := newBridge(t, nil)

	conn, err := OpenWebSocketConnection(context.Background(), WebSocketOptions{URL: url})
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.True(t, errors.Is(err, ErrConnectionClosed))

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestOpenWebSocketConnection_BasicAuth(t *testing.T) {
	auth := make(chan string, 1)
	url := newBridge(t, func(r *http.Request) { auth <- r.Header.Get("Authorization") })

	conn, err := OpenWebSocketConnection(context.Background(), WebSocketOptions{URL: url, Username: "admin", Password: "secret"})
	require.NoError(t, err)
	conn.Close()

	// base64("admin:secret")
	assert.Equal(t, "Basic YWRtaW46c2VjcmV0", <-auth)
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection(context.Background(), WebSocketOptions{URL: "http://localhost/feig"})
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestOpenConnection_WebSocketPreferred(t *testing.T) {
	withGlobals(t)
	url := newBridge(t, nil)

	conn, info, err := OpenConnection(context.Background(), ConnectionConfig{URL: url, Port: "/dev/ttyUSB0"})
	require.NoError(t, err)
	conn.Close()
	assert.Equal(t, "WebSocket: "+url, info)
}

func TestOpenConnection_NothingConfigured(t *testing.T) {
	withGlobals(t)

	_, _, err := OpenConnection(context.Background(), ConnectionConfig{})
	assert.Error(t, err)

	_, _, err = OpenConnection(context.Background(), ConnectionConfig{Port: "/dev/feigstat-missing", Baud: 38400})
	assert.ErrorContains(t, err, "failed to open serial port /dev/feigstat-missing")
}
