// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"bytes"
	"log"
)

// chunkSize bounds each binary write so the accessory's receive buffer is
// never overrun during image transfer.
const chunkSize = 100

// Transport frames the accessory's newline protocol over a Connection.
// Inbound bytes accumulate in a byte buffer that is split on '\n'; the
// buffer is never rune-decoded, so every byte value 0-255 round-trips and
// line splitting stays correct even for stray binary bytes.
type Transport struct {
	conn     Connection
	inbuffer []byte
	readbuf  []byte
	Debug    bool
}

// NewTransport wraps an open connection.
func NewTransport(conn Connection) *Transport {
	return &Transport{
		conn:    conn,
		readbuf: make([]byte, 256),
	}
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// WriteLine sends one command line, appending the terminator.
func (t *Transport) WriteLine(line string) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	if t.Debug {
		log.Printf("Sending: %s", line)
	}
	_, err := t.conn.Write(append([]byte(line), '\n'))
	return err
}

// WriteChunked sends a binary payload in fixed-size pieces back to back
// with no terminator. The last chunk may be shorter.
func (t *Transport) WriteChunked(data []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	if t.Debug {
		log.Printf("Sending %d bytes of binary data", len(data))
	}
	for start := 0; start < len(data); start += chunkSize {
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := t.conn.Write(data[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// ReadLine drains whatever bytes are currently available and returns the
// first complete line with '\r' stripped. When no full line is buffered it
// returns ErrNoLine, which is distinct from a closed connection error.
func (t *Transport) ReadLine() (string, error) {
	if t.conn == nil {
		return "", ErrNotConnected
	}

	// Drain everything currently available; a burst larger than the read
	// buffer is absorbed in one call.
	for {
		n, err := t.conn.Read(t.readbuf)
		if n > 0 {
			t.inbuffer = append(t.inbuffer, bytes.ReplaceAll(t.readbuf[:n], []byte{'\r'}, nil)...)
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
	}

	idx := bytes.IndexByte(t.inbuffer, '\n')
	if idx < 0 {
		return "", ErrNoLine
	}

	line := string(t.inbuffer[:idx])
	t.inbuffer = t.inbuffer[idx+1:]
	if t.Debug {
		log.Printf("Received: %s", line)
	}
	return line, nil
}
