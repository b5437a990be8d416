// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import "errors"

var (
	// ErrNoLine reports that no complete line is buffered yet. It is the
	// normal result of a non-blocking drain and never indicates a fault.
	ErrNoLine = errors.New("no complete line available")

	// ErrHandshakeTimeout reports that the info header or its Done
	// terminator did not arrive within the handshake budget.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrUnusableFirmware reports that the accessory runs the hardware
	// test firmware, which cannot be driven by this controller.
	ErrUnusableFirmware = errors.New("device is running the hardware test firmware")

	// ErrExchangeTimeout reports that an expected reply line never
	// arrived. The session stays connected; a late reply is noise.
	ErrExchangeTimeout = errors.New("exchange timed out")

	// ErrNotConnected reports an operation on a session with no link.
	ErrNotConnected = errors.New("not connected")
)
