// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Connection is a half-duplex byte stream to the accessory. Read must not
// block indefinitely: when no data is available within a short window it
// returns (0, nil) so the cooperative tick can keep running.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed connection.
var ErrConnectionClosed = fmt.Errorf("connection closed")

// readPollTimeout bounds a single Read so ReadLine behaves as a
// non-blocking drain of whatever bytes are currently available.
const readPollTimeout = 5 * time.Millisecond

// SerialConnection wraps a serial port.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection wraps a WebSocket bridge carrying the same byte
// stream. Messages are buffered so callers can read byte-wise.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// Drain buffered data from the previous message first.
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	if err := w.conn.SetReadDeadline(time.Now().Add(readPollTimeout)); err != nil {
		return 0, err
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				return 0, nil
			}
			w.closed = true
			return 0, err
		}

		// Only binary messages carry protocol bytes.
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens the accessory's serial port. The short read
// timeout makes Read return with whatever is available instead of blocking.
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket bridge with HTTP Basic auth.
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// Dialer enumerates candidate links and opens them. The orchestrator's
// reconnect loop walks Candidates in order until one completes a handshake.
type Dialer interface {
	Candidates() ([]string, error)
	Dial(name string) (Connection, error)
}

// SerialDialer finds the accessory among the attached serial ports by USB
// vendor/product identity, or uses a fixed port when configured.
type SerialDialer struct {
	Port     string // fixed port, skips enumeration when set
	BaudRate int
	VID      string // USB vendor ID as 4 hex digits, e.g. "1B4F"
	PID      string // USB product ID as 4 hex digits, e.g. "9206"
}

func (d *SerialDialer) Candidates() ([]string, error) {
	if d.Port != "" {
		return []string{d.Port}, nil
	}

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var names []string
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if strings.EqualFold(p.VID, d.VID) && strings.EqualFold(p.PID, d.PID) {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (d *SerialDialer) Dial(name string) (Connection, error) {
	baud := d.BaudRate
	if baud == 0 {
		baud = 115200
	}
	return OpenSerialConnection(name, baud)
}

// WebSocketDialer connects to a fixed WebSocket bridge URL.
type WebSocketDialer struct {
	URL           string
	Username      string
	Password      string
	SkipSSLVerify bool
}

func (d *WebSocketDialer) Candidates() ([]string, error) {
	return []string{d.URL}, nil
}

func (d *WebSocketDialer) Dial(name string) (Connection, error) {
	return OpenWebSocketConnection(name, d.Username, d.Password, d.SkipSSLVerify)
}
