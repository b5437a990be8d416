// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package deck

import "fmt"

// The accessory speaks a newline-terminated ASCII protocol. Host commands
// are single-letter codes followed by space-separated arguments. The device
// replies synchronously to INFO and REFRESH and otherwise pushes unsolicited
// key event lines.

// Command codes (host -> device).
const (
	CmdInfo    = "I" // request device info enumeration
	CmdAssign  = "A" // assign a key to a device-side action sequence
	CmdLed     = "L" // set all LED colors
	CmdAnimate = "B" // trigger a firmware-side LED animation
	CmdDisplay = "D" // display region header, followed by binary pixel data
	CmdRefresh = "R" // display refresh
)

// Refresh type codes, argument to CmdRefresh.
const (
	RefreshFull    = "f"
	RefreshPartial = "p"
	RefreshOff     = "o" // leave buffered mode after resending regions
	RefreshReset   = "r" // blank the display
)

// Reply literals.
const (
	replyHeader = "Inkdeck" // first line of the info enumeration
	replyDone   = "Done"    // terminator of the info enumeration
	replyOK     = "ok"      // refresh acknowledgment
)

// Info enumeration key prefixes.
const (
	infoTest     = "TEST "
	infoLeds     = "N_LED "
	infoWidth    = "DISP_W "
	infoHeight   = "DISP_H "
	infoRotSteps = "ROT_CIRCLE_STEPS "
	infoBanner   = "BANNER_H "
)

// KeyCode identifies a physical input on the accessory, both for key
// assignment commands and for matching unsolicited event lines. Switches
// report press and release as distinct codes. The jog dial press is switch 1.
type KeyCode string

const (
	KeyJog KeyCode = "R" // jog rotation event, line carries a signed step delta

	// Jog rotation as assignment targets (device-side HID actions).
	KeyJogCW  KeyCode = "R+"
	KeyJogCCW KeyCode = "R-"

	KeyJogPress   KeyCode = "1p"
	KeyJogRelease KeyCode = "1r"

	KeySw1Press   KeyCode = "1p"
	KeySw1Release KeyCode = "1r"
	KeySw2Press   KeyCode = "2p"
	KeySw2Release KeyCode = "2r"
	KeySw3Press   KeyCode = "3p"
	KeySw3Release KeyCode = "3r"
	KeySw4Press   KeyCode = "4p"
	KeySw4Release KeyCode = "4r"
	KeySw5Press   KeyCode = "5p"
	KeySw5Release KeyCode = "5r"
	KeySw6Press   KeyCode = "6p"
	KeySw6Release KeyCode = "6r"
	KeySw7Press   KeyCode = "7p"
	KeySw7Release KeyCode = "7r"
	KeySw8Press   KeyCode = "8p"
	KeySw8Release KeyCode = "8r"
	KeySw9Press   KeyCode = "9p"
	KeySw9Release KeyCode = "9r"
)

// SwitchPress returns the press code for switch n (1-9).
func SwitchPress(n int) KeyCode {
	return KeyCode(fmt.Sprintf("%dp", n))
}

// SwitchRelease returns the release code for switch n (1-9).
func SwitchRelease(n int) KeyCode {
	return KeyCode(fmt.Sprintf("%dr", n))
}

// DeviceCode selects which emulated HID device an assigned action targets.
type DeviceCode string

const (
	DeviceKeyboard DeviceCode = "K"
	DeviceConsumer DeviceCode = "C"
	DeviceMouse    DeviceCode = "M"
)

// ActionCode is the phase of an assigned HID action.
type ActionCode string

const (
	ActionPress   ActionCode = "p"
	ActionRelease ActionCode = "r"
	ActionTap     ActionCode = "t" // press and release in one action
)

// Mouse axis codes for delta actions.
const (
	AxisWheel = "W"
	AxisX     = "X"
	AxisY     = "Y"
)

// Event builds one action token of an assignment sequence: the target
// device, a device-specific keycode and the action phase, e.g. "K44p".
// Tokens contain no spaces; AssignKey joins them with spaces.
func Event(dev DeviceCode, keycode int, action ActionCode) string {
	return fmt.Sprintf("%s%d%s", dev, keycode, action)
}

// Tap is shorthand for a press-and-release action on a keycode.
func Tap(dev DeviceCode, keycode int) string {
	return Event(dev, keycode, ActionTap)
}

// AxisEvent builds a signed axis-delta token for the mouse device,
// e.g. "MW-1" for one wheel step down.
func AxisEvent(axis string, delta int) string {
	return fmt.Sprintf("%s%s%d", DeviceMouse, axis, delta)
}

// A few HID usage codes used by the built-in fallback mode. The full tables
// live in the firmware; the host only passes numbers through.
const (
	KeybArrowRight = 79
	KeybArrowLeft  = 80

	ConsumerPlayPause  = 205
	ConsumerStop       = 183
	ConsumerPrevTrack  = 182
	ConsumerNextTrack  = 181
	ConsumerVolUp      = 233
	ConsumerVolDown    = 234
	ConsumerEmail      = 394
	ConsumerCalculator = 402
)
