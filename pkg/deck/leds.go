// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"fmt"
	"strings"
	"time"
)

// LED frames hold at full brightness, then decay linearly to black. The
// decay is always computed from the original set point, so fading stays
// monotonic no matter how many ticks run in between.
const (
	ledHold = 3 * time.Second
	ledFade = 500 * time.Millisecond
)

// sendLed transmits one LED command with a pre-serialized color list.
func (d *Device) sendLed(colors []string) error {
	return d.transport.WriteLine(CmdLed + " " + strings.Join(colors, " "))
}

// SetLeds commands one 24-bit RGB color per LED and records the frame as
// the fade engine's new set point.
func (d *Device) SetLeds(colors []uint32) error {
	if d.transport == nil {
		return ErrNotConnected
	}
	serialized := make([]string, len(colors))
	for i, c := range colors {
		serialized[i] = fmt.Sprintf("%06x", c)
	}
	d.ledState = append([]uint32(nil), colors...)
	d.ledSetTime = d.now()
	return d.sendLed(serialized)
}

// SendLedAnimation triggers a firmware-side animation, used for short
// acknowledgment flashes without per-frame host traffic.
func (d *Device) SendLedAnimation(animation, steps, delay, brightness, r, g, b, iterations int) error {
	if d.transport == nil {
		return ErrNotConnected
	}
	return d.transport.WriteLine(fmt.Sprintf("%s %d %d %d %d %d %d %d %d",
		CmdAnimate, animation, steps, delay, brightness, r, g, b, iterations))
}

// FadeLeds advances the idle decay of the last commanded frame. Within the
// hold window it does nothing; once fully decayed it commands all-zero
// colors exactly once and clears the stored frame; in between it commands
// the set point scaled per channel with integer truncation.
func (d *Device) FadeLeds() error {
	if d.ledState == nil {
		return nil
	}
	if d.transport == nil {
		return ErrNotConnected
	}

	elapsed := d.now().Sub(d.ledSetTime)
	p := float64(ledHold+ledFade-elapsed) / float64(ledFade)
	if p >= 1 {
		return nil
	}
	if p <= 0 {
		d.ledState = nil
		off := make([]string, d.Capabilities.LedCount)
		for i := range off {
			off[i] = "000000"
		}
		return d.sendLed(off)
	}

	dimmed := make([]string, len(d.ledState))
	for i, c := range d.ledState {
		r := uint32(float64(c>>16&0xff) * p)
		g := uint32(float64(c>>8&0xff) * p)
		b := uint32(float64(c&0xff) * p)
		dimmed[i] = fmt.Sprintf("%06x", r<<16|g<<8|b)
	}
	return d.sendLed(dimmed)
}
