// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
)

// exchangePollInterval is how long an exchange sleeps between empty reads
// while waiting for its terminator line.
const exchangePollInterval = 100 * time.Millisecond

// defaultHandshakeTimeout bounds the whole info request exchange.
const defaultHandshakeTimeout = 3 * time.Second

// Capabilities is what the accessory reports during the handshake. It is
// immutable for the lifetime of a connection.
type Capabilities struct {
	TestFirmware        bool
	LedCount            int
	DisplayWidth        int
	DisplayHeight       int
	BannerHeight        int
	RotationCircleSteps int
}

// Device is the typed session facade over one accessory connection. All
// methods run on the orchestrator's thread; the exchange mutex exists so
// that a command awaiting its reply and the event dispatcher never read
// from the stream concurrently.
type Device struct {
	Capabilities Capabilities
	Debug        bool

	// HandshakeTimeout bounds the whole info exchange during Connect.
	HandshakeTimeout time.Duration

	transport *Transport

	// exchangeMu guards the read path. It is held for the full duration
	// of an exchange, including its timeout waits.
	exchangeMu sync.Mutex

	callbacks map[KeyCode]func()
	jogs      map[KeyCode]func(delta int)

	imageBuffer []ImageRegion

	ledState   []uint32
	ledSetTime time.Time

	// now and sleep are the session clock, swappable in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewDevice builds an unconnected session.
func NewDevice() *Device {
	return &Device{
		Capabilities:     Capabilities{BannerHeight: 20},
		HandshakeTimeout: defaultHandshakeTimeout,
		callbacks:        make(map[KeyCode]func()),
		jogs:             make(map[KeyCode]func(int)),
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// Connect attaches the session to an open connection and runs the
// capability handshake. On any failure the connection is closed.
func (d *Device) Connect(conn Connection) error {
	d.transport = NewTransport(conn)
	d.transport.Debug = d.Debug

	if err := d.requestInfo(d.HandshakeTimeout); err != nil {
		d.Disconnect()
		return err
	}
	if d.Capabilities.TestFirmware {
		d.Disconnect()
		return ErrUnusableFirmware
	}
	return nil
}

// Disconnect closes the link. Buffered images and the LED state are
// discarded; callbacks survive so a mode can be re-activated after a
// reconnect, though the orchestrator clears them on mode changes anyway.
func (d *Device) Disconnect() {
	if d.transport != nil {
		d.transport.Close()
		d.transport = nil
	}
	d.imageBuffer = nil
	d.ledState = nil
}

// Connected reports whether a link is attached.
func (d *Device) Connected() bool {
	return d.transport != nil
}

// withExchange runs body holding exclusive access to the read path. Any
// exit path releases the lock; a timed-out exchange leaves the link usable
// and a late reply is treated as noise by whoever reads next.
func (d *Device) withExchange(body func() error) error {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()
	return body()
}

// awaitLine polls for a line equal to want until the deadline. Other lines
// are logged and skipped as noise.
func (d *Device) awaitLine(want string, deadline time.Time) error {
	for {
		line, err := d.transport.ReadLine()
		switch {
		case err == nil:
			if line == want {
				return nil
			}
			log.Printf("Skipping: %s", line)
		case errors.Is(err, ErrNoLine):
			if d.now().After(deadline) {
				return ErrExchangeTimeout
			}
			d.sleep(exchangePollInterval)
		default:
			return err
		}
		if d.now().After(deadline) {
			return ErrExchangeTimeout
		}
	}
}

// requestInfo performs the capability handshake: send the info request,
// discard boot noise until the header literal, then collect key-value
// lines until the Done terminator. Unknown keys are forward-compatible
// noise and skipped.
func (d *Device) requestInfo(timeout time.Duration) error {
	return d.withExchange(func() error {
		log.Printf("Requesting device info...")
		deadline := d.now().Add(timeout)

		if err := d.transport.WriteLine(CmdInfo); err != nil {
			return err
		}
		if err := d.awaitHandshakeHeader(deadline); err != nil {
			return err
		}
		return d.collectCapabilities(deadline)
	})
}

func (d *Device) awaitHandshakeHeader(deadline time.Time) error {
	err := d.awaitLine(replyHeader, deadline)
	if errors.Is(err, ErrExchangeTimeout) {
		return ErrHandshakeTimeout
	}
	return err
}

func (d *Device) collectCapabilities(deadline time.Time) error {
	caps := Capabilities{BannerHeight: d.Capabilities.BannerHeight}
	for {
		line, err := d.transport.ReadLine()
		switch {
		case err == nil:
			if line == replyDone {
				d.Capabilities = caps
				log.Printf("Device info: leds=%d display=%dx%d rotSteps=%d test=%v",
					caps.LedCount, caps.DisplayWidth, caps.DisplayHeight,
					caps.RotationCircleSteps, caps.TestFirmware)
				return nil
			}
			parseInfoLine(line, &caps)
		case errors.Is(err, ErrNoLine):
			d.sleep(exchangePollInterval)
		default:
			return err
		}
		if d.now().After(deadline) {
			return ErrHandshakeTimeout
		}
	}
}

func parseInfoLine(line string, caps *Capabilities) {
	switch {
	case strings.HasPrefix(line, infoTest):
		caps.TestFirmware = strings.TrimPrefix(line, infoTest) != "0"
	case strings.HasPrefix(line, infoLeds):
		caps.LedCount = atoiOrZero(strings.TrimPrefix(line, infoLeds))
	case strings.HasPrefix(line, infoWidth):
		caps.DisplayWidth = atoiOrZero(strings.TrimPrefix(line, infoWidth))
	case strings.HasPrefix(line, infoHeight):
		caps.DisplayHeight = atoiOrZero(strings.TrimPrefix(line, infoHeight))
	case strings.HasPrefix(line, infoRotSteps):
		caps.RotationCircleSteps = atoiOrZero(strings.TrimPrefix(line, infoRotSteps))
	case strings.HasPrefix(line, infoBanner):
		caps.BannerHeight = atoiOrZero(strings.TrimPrefix(line, infoBanner))
	default:
		log.Printf("Skipping: %s", line)
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// AssignKey associates a key with a device-side action sequence. An empty
// sequence clears the assignment. No reply is awaited.
func (d *Device) AssignKey(key KeyCode, sequence []string) error {
	if d.transport == nil {
		return ErrNotConnected
	}
	cmd := CmdAssign + " " + string(key)
	if len(sequence) > 0 {
		cmd += " " + strings.Join(sequence, " ")
	}
	return d.transport.WriteLine(cmd)
}

// ResetDisplay blanks the display. Fire and forget; used when leaving a
// mode so stale imagery never shows through the transition.
func (d *Device) ResetDisplay() error {
	if d.transport == nil {
		return ErrNotConnected
	}
	return d.transport.WriteLine(CmdRefresh + " " + RefreshReset)
}

// UpdateDisplay refreshes the display and awaits the firmware's "ok"
// within timeout. With resendBuffer set it then replays every buffered
// region, leaves buffered mode and awaits a second "ok" under the same
// discipline; the region buffer is dropped only once that ok arrives, so a
// failed recovery can be retried. The firmware's buffer swap and its
// persistent frame memory are decoupled, which is why regions sent since
// the last full refresh must be replayed before buffering is switched off.
func (d *Device) UpdateDisplay(fullRefresh bool, timeout time.Duration, resendBuffer bool) error {
	if d.transport == nil {
		return ErrNotConnected
	}
	return d.withExchange(func() error {
		if d.Debug {
			log.Printf("UpdateDisplay(full=%v, timeout=%v, resend=%v)", fullRefresh, timeout, resendBuffer)
		}
		refresh := RefreshPartial
		if fullRefresh {
			refresh = RefreshFull
		}

		if err := d.transport.WriteLine(CmdRefresh + " " + refresh); err != nil {
			return err
		}
		if err := d.awaitLine(replyOK, d.now().Add(timeout)); err != nil {
			return fmt.Errorf("display refresh: %w", err)
		}

		if !resendBuffer {
			return nil
		}

		if err := d.resendImageData(); err != nil {
			return err
		}
		if err := d.transport.WriteLine(CmdRefresh + " " + RefreshOff); err != nil {
			return err
		}
		if err := d.awaitLine(replyOK, d.now().Add(timeout)); err != nil {
			return fmt.Errorf("display buffer-off: %w", err)
		}
		d.imageBuffer = nil
		return nil
	})
}
