// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import "testing"

// ============================================================
// Jog line parsing
// ============================================================

func TestParseJogLine(t *testing.T) {
	tests := []struct {
		line      string
		wantDelta int
		wantOK    bool
	}{
		{"R1", 1, true},
		{"R-3", -3, true},
		{"R+12", 12, true},
		{"R120", 120, true},
		{"R", 0, false},     // no delta
		{"R-", 0, false},    // sign without digits
		{"R1x", 0, false},   // trailing garbage
		{"Rx1", 0, false},   // non-numeric
		{"1p", 0, false},    // discrete code
		{"", 0, false},      // empty
		{"S5", 0, false},    // wrong prefix
		{"R 5", 0, false},   // embedded space
		{"R--2", 0, false},  // double sign
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			delta, ok := ParseJogLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseJogLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if ok && delta != tt.wantDelta {
				t.Errorf("ParseJogLine(%q) = %d, want %d", tt.line, delta, tt.wantDelta)
			}
		})
	}
}

// ============================================================
// Event dispatch
// ============================================================

func TestDrain_DiscreteCode(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	calls := 0
	d.RegisterCallback(KeySw2Press, func() { calls++ })

	conn.feedLines("2p", "2p", "9r")
	for i := 0; i < 4; i++ {
		if err := d.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("handler fired %d times, want exactly one call per matching line (2)", calls)
	}
}

func TestDrain_JogDelta(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	var deltas []int
	d.RegisterJogCallback(func(delta int) { deltas = append(deltas, delta) })

	conn.feedLines("R3", "R-1", "R+2")
	for i := 0; i < 3; i++ {
		if err := d.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	want := []int{3, -1, 2}
	if len(deltas) != len(want) {
		t.Fatalf("got %d jog events, want %d", len(deltas), len(want))
	}
	for i := range want {
		if deltas[i] != want[i] {
			t.Errorf("delta[%d] = %d, want %d", i, deltas[i], want[i])
		}
	}
}

func TestDrain_MalformedJogFallsThrough(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	jogCalls := 0
	d.RegisterJogCallback(func(int) { jogCalls++ })
	discreteCalls := 0
	d.RegisterCallback(KeyCode("R1x"), func() { discreteCalls++ })

	conn.feedLines("R1x")
	if err := d.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if jogCalls != 0 {
		t.Errorf("malformed jog suffix must not fire the jog handler")
	}
	if discreteCalls != 1 {
		t.Errorf("malformed jog line should match as a discrete code, got %d calls", discreteCalls)
	}
}

func TestDrain_UnrecognizedLineDropped(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	calls := 0
	d.RegisterCallback(KeySw3Press, func() { calls++ })

	conn.feedLines("7p", "hello", "Rnope")
	for i := 0; i < 3; i++ {
		if err := d.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	if calls != 0 {
		t.Errorf("no handler should fire for unregistered lines, got %d calls", calls)
	}
}

func TestClearCallbacks_StopsDispatch(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	calls := 0
	d.RegisterCallback(KeySw2Press, func() { calls++ })
	d.RegisterJogCallback(func(int) { calls++ })
	d.ClearCallbacks()

	conn.feedLines("2p", "R5")
	for i := 0; i < 2; i++ {
		if err := d.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	if calls != 0 {
		t.Errorf("cleared handlers fired %d times", calls)
	}
}

func TestClearCallback_Single(t *testing.T) {
	conn := &fakeConn{}
	d, _ := newTestDevice(t, conn)

	kept := 0
	dropped := 0
	d.RegisterCallback(KeySw2Press, func() { dropped++ })
	d.RegisterCallback(KeySw3Press, func() { kept++ })
	d.ClearCallback(KeySw2Press)

	conn.feedLines("2p", "3p")
	for i := 0; i < 2; i++ {
		if err := d.Drain(); err != nil {
			t.Fatalf("Drain: %v", err)
		}
	}
	if dropped != 0 || kept != 1 {
		t.Errorf("dropped=%d kept=%d, want 0/1", dropped, kept)
	}
}
