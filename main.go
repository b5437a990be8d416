// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors
//
// Inkdeck - host controller for the inkdeck e-ink macro keypad.

package main

import (
	"os"

	"github.com/inkdeck/inkdeck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
