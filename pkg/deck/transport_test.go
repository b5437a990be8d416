// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Line framing
// ============================================================

func TestReadLine_NoData(t *testing.T) {
	tr := NewTransport(&fakeConn{})
	if _, err := tr.ReadLine(); !errors.Is(err, ErrNoLine) {
		t.Errorf("expected ErrNoLine on a quiet link, got %v", err)
	}
}

func TestReadLine_PartialThenComplete(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{[]byte("Ink")}}
	tr := NewTransport(conn)

	// The fragment is absorbed but no complete line exists yet.
	if _, err := tr.ReadLine(); !errors.Is(err, ErrNoLine) {
		t.Fatalf("incomplete line should report ErrNoLine, got %v", err)
	}

	conn.reads = append(conn.reads, []byte("deck\n1p\n"))
	line, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "Inkdeck" {
		t.Errorf("expected first line %q, got %q", "Inkdeck", line)
	}

	// The second line was buffered in the same drain.
	line, err = tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "1p" {
		t.Errorf("expected retained line %q, got %q", "1p", line)
	}
}

func TestReadLine_DrainsBurstInOneCall(t *testing.T) {
	// A burst larger than the internal read buffer must be absorbed by a
	// single ReadLine call, not one buffer-full per poll.
	long := append(bytes.Repeat([]byte{'x'}, 600), '\n')
	conn := &fakeConn{reads: [][]byte{long, []byte("ok\n")}}
	tr := NewTransport(conn)

	line, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if len(line) != 600 {
		t.Errorf("expected the full 600-byte line, got %d bytes", len(line))
	}

	// The trailing line arrived in the same drain.
	line, err = tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "ok" {
		t.Errorf("expected buffered line %q, got %q", "ok", line)
	}
}

func TestReadLine_StripsCarriageReturn(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{[]byte("ok\r\n")}}
	tr := NewTransport(conn)

	line, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "ok" {
		t.Errorf("expected %q, got %q", "ok", line)
	}
}

func TestReadLine_EightBitTransparent(t *testing.T) {
	// Arbitrary high bytes must round-trip one byte per character so that
	// line splitting stays correct even for stray binary data.
	raw := []byte{0xff, 0x80, 0x00, 0xa5, '\n'}
	conn := &fakeConn{reads: [][]byte{raw}}
	tr := NewTransport(conn)

	line, err := tr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if len(line) != 4 {
		t.Fatalf("expected 4 one-byte characters, got %d bytes", len(line))
	}
	if !bytes.Equal([]byte(line), raw[:4]) {
		t.Errorf("bytes did not round-trip: got % x", []byte(line))
	}
}

func TestReadLine_ClosedConnection(t *testing.T) {
	conn := &fakeConn{}
	tr := NewTransport(conn)
	conn.closed = true

	if _, err := tr.ReadLine(); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestWriteLine_AppendsTerminator(t *testing.T) {
	conn := &fakeConn{}
	tr := NewTransport(conn)

	if err := tr.WriteLine("L ff0000"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if got := conn.writes.String(); got != "L ff0000\n" {
		t.Errorf("expected terminated line, got %q", got)
	}
}

// ============================================================
// Chunked binary writes
// ============================================================

func TestWriteChunked_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantWrites int
	}{
		{"empty", 0, 0},
		{"below chunk size", 42, 1},
		{"exact chunk size", 100, 1},
		{"one byte over", 101, 2},
		{"several chunks", 350, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &countingConn{}
			tr := NewTransport(conn)

			data := make([]byte, tt.size)
			for i := range data {
				data[i] = byte(i)
			}
			if err := tr.WriteChunked(data); err != nil {
				t.Fatalf("WriteChunked: %v", err)
			}

			if len(conn.sizes) != tt.wantWrites {
				t.Errorf("expected %d writes, got %d (%v)", tt.wantWrites, len(conn.sizes), conn.sizes)
			}
			for i, n := range conn.sizes {
				if n > chunkSize {
					t.Errorf("write %d exceeds chunk size: %d", i, n)
				}
			}
			if !bytes.Equal(conn.data.Bytes(), data) {
				t.Errorf("chunked payload does not reassemble to the original")
			}
		})
	}
}

// countingConn records the size of each write.
type countingConn struct {
	data  bytes.Buffer
	sizes []int
}

func (c *countingConn) Read(p []byte) (int, error) { return 0, nil }

func (c *countingConn) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	c.data.Write(p)
	return len(p), nil
}

func (c *countingConn) Close() error { return nil }
