// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// fakeConn scripts the accessory's side of the link. Each Read delivers
// the next queued chunk; an empty queue behaves like a quiet link (0, nil),
// matching the non-blocking Connection contract. All writes are recorded.
type fakeConn struct {
	reads  [][]byte
	writes bytes.Buffer
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, ErrConnectionClosed
	}
	if len(c.reads) == 0 {
		return 0, nil
	}
	chunk := c.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		c.reads[0] = chunk[n:]
	} else {
		c.reads = c.reads[1:]
	}
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrConnectionClosed
	}
	c.writes.Write(p)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// feedLines queues inbound lines, each delivered in its own Read.
func (c *fakeConn) feedLines(lines ...string) {
	for _, l := range lines {
		c.reads = append(c.reads, []byte(l+"\n"))
	}
}

// writtenLines returns everything written so far, split on newlines.
func (c *fakeConn) writtenLines() []string {
	s := strings.TrimSuffix(c.writes.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// newTestDevice wires a device to a fake connection with a fake clock that
// advances on every sleep, so exchange timeouts elapse instantly.
func newTestDevice(t *testing.T, conn *fakeConn) (*Device, *time.Time) {
	t.Helper()
	now := time.Unix(1000, 0)
	d := NewDevice()
	d.transport = NewTransport(conn)
	d.now = func() time.Time { return now }
	d.sleep = func(dur time.Duration) { now = now.Add(dur) }
	return d, &now
}
