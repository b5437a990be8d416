// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inkdeck/inkdeck/pkg/deck"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch raw protocol lines and key events",
	Long: `Connect to the keypad and display every inbound protocol line as it
arrives, classified as key event, jog event or noise.

No commands are sent, so the keypad keeps whatever state its current host
session left behind. Useful for verifying
wiring and firmware behavior.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var (
	monitorTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	monitorKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	monitorJogStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	monitorNoiseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	monitorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
)

type monitorLineMsg struct {
	when time.Time
	line string
}

type monitorErrMsg struct{ err error }

type monitorModel struct {
	viewport viewport.Model
	lines    []string
	connInfo string
	ready    bool
	quitting bool
	err      error
}

func (m monitorModel) Init() tea.Cmd {
	return nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil

	case monitorLineMsg:
		m.lines = append(m.lines, formatMonitorLine(msg.when, msg.line))
		if len(m.lines) > 500 {
			m.lines = m.lines[len(m.lines)-500:]
		}
		if m.ready {
			m.viewport.SetContent(strings.Join(m.lines, "\n"))
			m.viewport.GotoBottom()
		}
		return m, nil

	case monitorErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}
	header := monitorTitleStyle.Render("inkdeck monitor") + "  " + m.connInfo + "  (q to quit)"
	if !m.ready {
		return header + "\n  connecting..."
	}
	return header + "\n" + m.viewport.View()
}

// formatMonitorLine classifies one inbound line the same way the event
// dispatcher does and renders it with a timestamp.
func formatMonitorLine(when time.Time, line string) string {
	ts := monitorTimeStyle.Render(when.Format("15:04:05.000"))
	if delta, ok := deck.ParseJogLine(line); ok {
		return fmt.Sprintf("%s %s %+d", ts, monitorJogStyle.Render("JOG"), delta)
	}
	if len(line) == 2 && line[0] >= '1' && line[0] <= '9' && (line[1] == 'p' || line[1] == 'r') {
		action := "press"
		if line[1] == 'r' {
			action = "release"
		}
		return fmt.Sprintf("%s %s switch %c %s", ts, monitorKeyStyle.Render("KEY"), line[0], action)
	}
	return fmt.Sprintf("%s %s %s", ts, monitorNoiseStyle.Render("RAW"), line)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	dialer, err := newDialer()
	if err != nil {
		return err
	}
	candidates, err := dialer.Candidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no matching device found (try --port or --url)")
	}

	conn, err := dialer.Dial(candidates[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	transport := deck.NewTransport(conn)
	m := monitorModel{connInfo: candidates[0]}
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			line, err := transport.ReadLine()
			switch {
			case err == nil:
				p.Send(monitorLineMsg{when: time.Now(), line: line})
			case errors.Is(err, deck.ErrNoLine):
				time.Sleep(10 * time.Millisecond)
			default:
				p.Send(monitorErrMsg{err: err})
				return
			}
		}
	}()

	final, err := p.Run()
	close(done)
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if fm, ok := final.(monitorModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
