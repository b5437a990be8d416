// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import "strconv"

// RegisterCallback invokes cb when the device reports key. Callbacks are
// per-mode; the orchestrator clears them all before activating a new mode.
func (d *Device) RegisterCallback(key KeyCode, cb func()) {
	d.callbacks[key] = cb
}

// RegisterJogCallback invokes cb with the signed step delta of a jog
// rotation event.
func (d *Device) RegisterJogCallback(cb func(delta int)) {
	d.jogs[KeyJog] = cb
}

// ClearCallback removes the handler for key, including the jog handler
// when key is KeyJog.
func (d *Device) ClearCallback(key KeyCode) {
	delete(d.callbacks, key)
	delete(d.jogs, key)
}

// ClearCallbacks removes every registered handler.
func (d *Device) ClearCallbacks() {
	d.callbacks = make(map[KeyCode]func())
	d.jogs = make(map[KeyCode]func(int))
}

// Drain performs one non-exchange read of the stream and dispatches at
// most one event. A line whose first character is the jog code followed by
// a fully numeric signed suffix is a continuous event; a line equal to a
// registered discrete code fires that handler; anything else is dropped.
// The read happens under the exchange lock so a pending command reply can
// never be stolen here.
func (d *Device) Drain() error {
	if d.transport == nil {
		return ErrNotConnected
	}

	var line string
	err := d.withExchange(func() error {
		var err error
		line, err = d.transport.ReadLine()
		return err
	})
	if err != nil {
		if err == ErrNoLine {
			return nil
		}
		return err
	}

	if delta, ok := ParseJogLine(line); ok {
		if cb, ok := d.jogs[KeyJog]; ok {
			cb(delta)
		}
		return nil
	}
	if cb, ok := d.callbacks[KeyCode(line)]; ok {
		cb()
	}
	return nil
}

// ParseJogLine recognizes "<jogcode><signed integer>". A malformed suffix
// is not a jog event; the line falls through to discrete-code matching.
func ParseJogLine(line string) (int, bool) {
	if len(line) < 2 || KeyCode(line[:1]) != KeyJog {
		return 0, false
	}
	delta, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, false
	}
	return delta, true
}
