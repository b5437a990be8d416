// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"regexp"
	"time"
)

// NoPoll is returned from Mode.Poll when the mode does not need to be
// polled again until it is reactivated.
const NoPoll time.Duration = -1

// Mode is one swappable bundle of key assignments, display content and LED
// behavior, bound to a detected application context. Modes are created
// once and reused across activations.
type Mode interface {
	// Activate is called when the mode becomes current, typically to set
	// up key assignments and display content.
	Activate(d *Device) error

	// Deactivate is called before switching to a different mode. It must
	// leave no callbacks behind.
	Deactivate(d *Device) error

	// Poll is called periodically for state the mode needs to monitor.
	// It returns the time until the next poll, or NoPoll.
	Poll(d *Device) (time.Duration, error)

	// Animate is called on every tick, up to 30 times per second.
	Animate(d *Device) error
}

// ModeBase provides the default behavior for modes that do not need all
// four capabilities. Embed it and override what the mode actually uses.
type ModeBase struct{}

func (ModeBase) Activate(d *Device) error { return nil }

// Deactivate clears all callbacks so nothing from this mode fires during
// or after the transition.
func (ModeBase) Deactivate(d *Device) error {
	d.ClearCallbacks()
	return nil
}

func (ModeBase) Poll(d *Device) (time.Duration, error) { return NoPoll, nil }

// Animate fades out whatever LED frame the mode last set.
func (ModeBase) Animate(d *Device) error { return d.FadeLeds() }

// ModeRule pairs a mode with an optional match predicate. A rule matches
// when the named process is running or the foreground window title matches
// the pattern. A rule with neither predicate always matches; exactly one
// such fallback rule must exist and it must be last.
type ModeRule struct {
	Mode    Mode
	Process string
	Window  *regexp.Regexp
}

// Matches evaluates the rule against an environment sample.
func (r ModeRule) Matches(processes map[string]struct{}, window string) bool {
	if r.Process == "" && r.Window == nil {
		return true
	}
	if r.Process != "" {
		if _, ok := processes[r.Process]; ok {
			return true
		}
	}
	if r.Window != nil && r.Window.MatchString(window) {
		return true
	}
	return false
}

// SelectMode returns the first matching rule's mode. Rules are ordered;
// with a trailing fallback rule there is always a match.
func SelectMode(rules []ModeRule, processes map[string]struct{}, window string) Mode {
	for _, r := range rules {
		if r.Matches(processes, window) {
			return r.Mode
		}
	}
	return nil
}
