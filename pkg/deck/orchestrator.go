// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Environment supplies the pull-queried context samples the orchestrator
// matches mode rules against. Failures are tolerated and treated as "no
// change", never as fatal.
type Environment interface {
	ActiveProcesses() (map[string]struct{}, error)
	ActiveWindow() (string, error)
}

// Tick and sampling cadence of the running loop.
const (
	framePeriod     = time.Second / 30
	processInterval = 5 * time.Second
	windowInterval  = 500 * time.Millisecond
	reconnectDelay  = 3 * time.Second
)

// Orchestrator owns the top-level control loop: it keeps a session
// connected, samples the environment, switches modes through their
// lifecycle and drives the fixed-rate animate/dispatch tick. All state is
// explicit; multiple orchestrators can run against independent devices.
type Orchestrator struct {
	Device *Device
	Dialer Dialer
	Env    Environment

	// Rules is the ordered mode list. The last rule must be the
	// always-matching fallback.
	Rules []ModeRule

	Debug bool

	current      Mode
	pollInterval time.Duration
	lastPoll     time.Time
	lastProcs    time.Time
	lastWindow   time.Time
	processes    map[string]struct{}
	window       string

	now   func() time.Time
	sleep func(time.Duration)
}

// NewOrchestrator wires an orchestrator with the real clock.
func NewOrchestrator(dev *Device, dialer Dialer, env Environment, rules []ModeRule) *Orchestrator {
	return &Orchestrator{
		Device:    dev,
		Dialer:    dialer,
		Env:       env,
		Rules:     rules,
		processes: make(map[string]struct{}),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Run is the outer reconnect loop. It tries every candidate link in turn,
// runs the session until it fails and retries after a fixed backoff. It
// returns only when ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		candidates, err := o.Dialer.Candidates()
		if err != nil {
			log.Printf("Link enumeration failed: %v", err)
		}
		if len(candidates) == 0 {
			log.Printf("No matching device found.")
		}

		for _, name := range candidates {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := o.runLink(ctx, name); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Session on %s ended: %v", name, err)
				continue
			}
			// Session ended without error: the device was found and
			// served until disconnect. Restart enumeration from scratch.
			break
		}

		log.Printf("Retrying in %v...", reconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// runLink connects and handshakes one candidate, then enters the running
// loop until the session fails or ctx is canceled.
func (o *Orchestrator) runLink(ctx context.Context, name string) error {
	log.Printf("Connecting to %s.", name)
	conn, err := o.Dialer.Dial(name)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := o.Device.Connect(conn); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Printf("Connected to %s.", name)
	defer o.Device.Disconnect()
	defer o.dropMode()

	o.resetSchedule()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := o.tick(); err != nil {
			return err
		}
	}
}

// resetSchedule forgets all sampling state so a fresh connection samples
// and selects a mode immediately.
func (o *Orchestrator) resetSchedule() {
	o.lastProcs = time.Time{}
	o.lastWindow = time.Time{}
	o.lastPoll = time.Time{}
	o.window = ""
}

// dropMode forgets the current mode without running its deactivation
// protocol, for use when the link is already gone.
func (o *Orchestrator) dropMode() {
	o.current = nil
	o.Device.ClearCallbacks()
}

// tick runs one frame: environment sampling, mode selection, mode poll,
// animation and event dispatch, then sleeps out the remainder of the
// frame budget. A panic inside a mode is demoted to an error so the outer
// loop can disconnect and retry instead of taking the process down.
func (o *Orchestrator) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()

	start := o.now()

	if start.Sub(o.lastProcs) > processInterval {
		if procs, perr := o.Env.ActiveProcesses(); perr == nil {
			o.processes = procs
		} else if o.Debug {
			log.Printf("Could not list processes: %v", perr)
		}
		o.lastProcs = start
	}

	if start.Sub(o.lastWindow) > windowInterval {
		if window, werr := o.Env.ActiveWindow(); werr == nil {
			if o.Debug && window != o.window {
				log.Printf("Active window: %s", window)
			}
			o.window = window
		} else if o.Debug {
			log.Printf("Could not get active window: %v", werr)
		}
		if err := o.evaluateMode(); err != nil {
			return err
		}
		o.lastWindow = start
	}

	if err := o.pollMode(start); err != nil {
		return err
	}

	if o.current != nil {
		if err := o.current.Animate(o.Device); err != nil {
			return err
		}
	}
	if err := o.Device.Drain(); err != nil {
		return err
	}

	if remaining := framePeriod - o.now().Sub(start); remaining > 0 {
		o.sleep(remaining)
	}
	return nil
}

// evaluateMode selects the first matching rule and, when it differs from
// the current mode, runs the transition: deactivate, a short LED flash as
// acknowledgment, display reset, then activation with an immediate poll.
func (o *Orchestrator) evaluateMode() error {
	next := SelectMode(o.Rules, o.processes, o.window)
	if next == nil || next == o.current {
		return nil
	}

	log.Printf("Switching mode to %T", next)
	if o.current != nil {
		if err := o.current.Deactivate(o.Device); err != nil {
			return err
		}
		if err := o.Device.SendLedAnimation(2, 50, 20, 0, 0, 0, 255, 2); err != nil {
			return err
		}
		if err := o.Device.ResetDisplay(); err != nil {
			return err
		}
	}

	o.current = next
	o.pollInterval = 0
	o.lastPoll = time.Time{}
	return o.current.Activate(o.Device)
}

// pollMode calls the current mode's Poll once its requested interval has
// elapsed and records the next one.
func (o *Orchestrator) pollMode(now time.Time) error {
	if o.current == nil || o.pollInterval == NoPoll {
		return nil
	}
	if !o.lastPoll.IsZero() && now.Sub(o.lastPoll) <= o.pollInterval {
		return nil
	}

	interval, err := o.current.Poll(o.Device)
	if err != nil {
		return err
	}
	o.pollInterval = interval
	o.lastPoll = now
	return nil
}
