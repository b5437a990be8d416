// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

// Package envprobe samples the user's desktop context: the set of running
// process names and the foreground window title. Both are pull-queried by
// the orchestrator; a failed sample is reported as an error and treated
// upstream as "no change".
package envprobe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Probe samples the desktop environment.
type Probe interface {
	ActiveProcesses() (map[string]struct{}, error)
	ActiveWindow() (string, error)
}

// SystemProbe reads process names from /proc and asks the X server for the
// focused window title via xdotool. There is no suitable cross-platform
// library for the window query, so it shells out and tolerates failure.
type SystemProbe struct{}

// ActiveProcesses returns the comm names of all running processes.
func (SystemProbe) ActiveProcesses() (map[string]struct{}, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	names := make(map[string]struct{})
	for _, e := range entries {
		if !e.IsDir() || !isNumeric(e.Name()) {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if err != nil {
			// The process may have exited between ReadDir and here.
			continue
		}
		names[strings.TrimSpace(string(comm))] = struct{}{}
	}
	return names, nil
}

// ActiveWindow returns the title of the focused window.
func (SystemProbe) ActiveWindow() (string, error) {
	out, err := exec.Command("xdotool", "getactivewindow", "getwindowname").Output()
	if err != nil {
		return "", fmt.Errorf("query active window: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StaticProbe reports fixed samples, for tests and headless setups.
type StaticProbe struct {
	Processes map[string]struct{}
	Window    string
}

func (p StaticProbe) ActiveProcesses() (map[string]struct{}, error) {
	return p.Processes, nil
}

func (p StaticProbe) ActiveWindow() (string, error) {
	return p.Window, nil
}
