// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

// Package modes contains the mode implementations shipped with the tool.
// Application-specific binding tables belong in the integrator's own
// modes; only the always-matching fallback lives here.
package modes

import (
	"time"

	"github.com/inkdeck/inkdeck/pkg/deck"
	"github.com/inkdeck/inkdeck/pkg/telemetry"
)

// co2WarnPPM is the reading above which the fallback mode turns all LEDs
// blue as a ventilation reminder.
const co2WarnPPM = 1000

// Fallback is the lowest-priority mode: media controls on the buttons, a
// switchable jog dial function and optional telemetry feedback (office
// light toggle, CO2 warning). It is active whenever no other rule matches.
type Fallback struct {
	deck.ModeBase

	Telemetry *telemetry.Client

	jogFunction string
	lightState  bool
}

// NewFallback builds the fallback mode. telemetryClient may be nil.
func NewFallback(telemetryClient *telemetry.Client) *Fallback {
	return &Fallback{Telemetry: telemetryClient}
}

// Activate assigns the static keys and the initial jog function. Display
// content is left to the renderer layer; the core contract only covers
// key assignments and LED behavior here.
func (m *Fallback) Activate(d *deck.Device) error {
	type binding struct {
		press   deck.KeyCode
		release deck.KeyCode
		code    int
	}
	media := []binding{
		{deck.KeySw2Press, deck.KeySw2Release, deck.ConsumerPlayPause},
		{deck.KeySw3Press, deck.KeySw3Release, deck.ConsumerPrevTrack},
		{deck.KeySw6Press, deck.KeySw6Release, deck.ConsumerStop},
		{deck.KeySw7Press, deck.KeySw7Release, deck.ConsumerNextTrack},
		{deck.KeySw5Press, deck.KeySw5Release, deck.ConsumerEmail},
		{deck.KeySw9Press, deck.KeySw9Release, deck.ConsumerCalculator},
	}
	for _, b := range media {
		if err := d.AssignKey(b.press, []string{deck.Event(deck.DeviceConsumer, b.code, deck.ActionPress)}); err != nil {
			return err
		}
		if err := d.AssignKey(b.release, []string{deck.Event(deck.DeviceConsumer, b.code, deck.ActionRelease)}); err != nil {
			return err
		}
	}

	// Button 4 toggles the office light when telemetry is wired.
	if err := d.AssignKey(deck.KeySw4Press, nil); err != nil {
		return err
	}
	if err := d.AssignKey(deck.KeySw4Release, nil); err != nil {
		return err
	}
	if m.Telemetry != nil {
		if on, ok := m.Telemetry.Lights(); ok {
			m.lightState = on
		}
		d.RegisterCallback(deck.KeySw4Press, func() { m.toggleLight() })
	}

	// The jog dial press cycles its function.
	if err := d.AssignKey(deck.KeySw1Press, nil); err != nil {
		return err
	}
	if err := d.AssignKey(deck.KeySw1Release, nil); err != nil {
		return err
	}
	d.RegisterCallback(deck.KeyJogPress, func() { m.toggleJogFunction(d) })

	m.jogFunction = ""
	m.toggleJogFunction(d)
	return nil
}

func (m *Fallback) toggleLight() {
	m.lightState = !m.lightState
	m.Telemetry.SetLights(m.lightState)
}

// toggleJogFunction cycles mouse wheel -> arrow keys -> volume. Kept as a
// method mutating mode state rather than a captured closure, so ownership
// of the current function is explicit.
func (m *Fallback) toggleJogFunction(d *deck.Device) {
	switch m.jogFunction {
	case "wheel":
		d.ClearCallback(deck.KeyJog)
		d.AssignKey(deck.KeyJogCW, []string{deck.Tap(deck.DeviceKeyboard, deck.KeybArrowRight)})
		d.AssignKey(deck.KeyJogCCW, []string{deck.Tap(deck.DeviceKeyboard, deck.KeybArrowLeft)})
		m.jogFunction = "arrow"
	case "arrow":
		d.AssignKey(deck.KeyJogCW, []string{deck.Tap(deck.DeviceConsumer, deck.ConsumerVolUp)})
		d.AssignKey(deck.KeyJogCCW, []string{deck.Tap(deck.DeviceConsumer, deck.ConsumerVolDown)})
		m.jogFunction = "volume"
	default:
		d.ClearCallback(deck.KeyJog)
		d.AssignKey(deck.KeyJogCW, []string{deck.AxisEvent(deck.AxisWheel, 1)})
		d.AssignKey(deck.KeyJogCCW, []string{deck.AxisEvent(deck.AxisWheel, -1)})
		m.jogFunction = "wheel"
	}
}

// Poll checks telemetry: a high CO2 reading lights all LEDs blue, and a
// light state changed from elsewhere is folded into the toggle state.
func (m *Fallback) Poll(d *deck.Device) (time.Duration, error) {
	if m.Telemetry == nil {
		return deck.NoPoll, nil
	}
	if ppm, ok := m.Telemetry.CO2(); ok && ppm > co2WarnPPM {
		warn := make([]uint32, d.Capabilities.LedCount)
		for i := range warn {
			warn[i] = 0x0000ff
		}
		if err := d.SetLeds(warn); err != nil {
			return deck.NoPoll, err
		}
	}
	if on, ok := m.Telemetry.Lights(); ok {
		m.lightState = on
	}
	return 10 * time.Second, nil
}
