// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkdeck/inkdeck/pkg/deck"
	"github.com/inkdeck/inkdeck/pkg/envprobe"
	"github.com/inkdeck/inkdeck/pkg/modes"
	"github.com/inkdeck/inkdeck/pkg/telemetry"
)

var ruleSpecs []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mode orchestrator",
	Long: `Connect to the keypad and drive it until interrupted.

The orchestrator samples the foreground window and running processes,
selects the first matching mode rule, and falls back to the built-in
default mode when nothing matches. It reconnects automatically with a
fixed backoff whenever the link is lost.

Mode rules are given as --rule <mode>:process=<name> or
--rule <mode>:window=<regexp> and are evaluated in the order given,
before the fallback.

Press Ctrl+C to quit.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&ruleSpecs, "rule", nil, "Mode rule, e.g. fallback:window=^gimp.*")
}

func runRun(cmd *cobra.Command, args []string) error {
	dialer, err := newDialer()
	if err != nil {
		return err
	}

	tel := telemetry.NewClient(telemetry.Config{
		Broker:      mqttBroker,
		ClientID:    "inkdeck",
		LightsTopic: mqttLightsTopic,
		CO2Topic:    mqttCO2Topic,
	}, debug)
	if err := tel.Connect(); err != nil {
		// Telemetry is optional; the keypad works without it.
		log.Printf("Telemetry unavailable: %v", err)
	}
	defer tel.Disconnect()

	fallback := modes.NewFallback(tel)
	rules, err := buildRules(fallback)
	if err != nil {
		return err
	}

	dev := deck.NewDevice()
	dev.Debug = debug

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("I will try to stay connected. Press Ctrl+C to quit.")
	orch := deck.NewOrchestrator(dev, dialer, envprobe.SystemProbe{}, rules)
	orch.Debug = debug
	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("Ok, bye.")
	return nil
}

// buildRules parses --rule flags into an ordered rule list ending in the
// always-matching fallback. Named modes beyond "fallback" are resolved
// against the built-in registry; integrators add their own here.
func buildRules(fallback deck.Mode) ([]deck.ModeRule, error) {
	registry := map[string]deck.Mode{
		"fallback": fallback,
	}

	var rules []deck.ModeRule
	for _, spec := range ruleSpecs {
		name, predicate, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid rule %q: want <mode>:<predicate>", spec)
		}
		mode, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown mode %q", name)
		}

		kind, value, ok := strings.Cut(predicate, "=")
		if !ok {
			return nil, fmt.Errorf("invalid predicate %q: want process=<name> or window=<regexp>", predicate)
		}
		switch kind {
		case "process":
			rules = append(rules, deck.ModeRule{Mode: mode, Process: value})
		case "window":
			re, err := regexp.Compile(value)
			if err != nil {
				return nil, fmt.Errorf("invalid window pattern %q: %w", value, err)
			}
			rules = append(rules, deck.ModeRule{Mode: mode, Window: re})
		default:
			return nil, fmt.Errorf("unknown predicate kind %q", kind)
		}
	}

	return append(rules, deck.ModeRule{Mode: fallback}), nil
}
