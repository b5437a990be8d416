// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsAll bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports matching the keypad's USB identity",
	Long: `Enumerate attached serial ports and show which ones match the
configured USB vendor/product ID. Use --all to list every port.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsAll, "all", false, "List all serial ports, not only matches")
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	matches := 0
	for _, p := range ports {
		matched := p.IsUSB && strings.EqualFold(p.VID, usbVID) && strings.EqualFold(p.PID, usbPID)
		if matched {
			matches++
		}
		if !matched && !portsAll {
			continue
		}

		marker := " "
		if matched {
			marker = "*"
		}
		if p.IsUSB {
			fmt.Printf("%s %-20s USB %s:%s %s\n", marker, p.Name, p.VID, p.PID, p.SerialNumber)
		} else {
			fmt.Printf("%s %-20s\n", marker, p.Name)
		}
	}

	if matches == 0 {
		fmt.Printf("No port matches %s:%s. Is the keypad plugged in?\n", usbVID, usbPID)
	}
	return nil
}
