// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inkdeck/inkdeck/pkg/deck"
)

var (
	// Serial connection flags
	portName string
	baudRate int
	usbVID   string
	usbPID   string

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// MQTT telemetry flags
	mqttBroker      string
	mqttLightsTopic string
	mqttCO2Topic    string

	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "inkdeck",
	Short: "Host controller for the inkdeck e-ink macro keypad",
	Long: `Inkdeck drives the e-ink macro keypad over its serial line protocol:
it assigns keys, uploads display content, animates the LEDs and switches
key-mapping modes based on the foreground application.

Connection modes:
  Serial:    --port /dev/ttyACM0, or auto-detected by USB VID/PID
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the INKDECK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (skips auto-detection)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVar(&usbVID, "vid", "1B4F", "USB vendor ID for auto-detection")
	rootCmd.PersistentFlags().StringVar(&usbPID, "pid", "9206", "USB product ID for auto-detection")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker for telemetry, e.g. tcp://broker:1883 (disabled when empty)")
	rootCmd.PersistentFlags().StringVar(&mqttLightsTopic, "mqtt-lights-topic", "zigbee2mqtt/plug_office", "MQTT topic carrying the light plug state")
	rootCmd.PersistentFlags().StringVar(&mqttCO2Topic, "mqtt-co2-topic", "co2/data/update", "MQTT topic carrying CO2 readings")

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log protocol traffic verbatim")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// getPassword retrieves the WebSocket password from the environment or
// prompts for it with echo disabled.
func getPassword() (string, error) {
	if pw := os.Getenv("INKDECK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// newDialer builds the link dialer from the connection flags: a WebSocket
// bridge when --url is set, otherwise serial with VID/PID auto-detection.
func newDialer() (deck.Dialer, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, err
			}
		}
		return &deck.WebSocketDialer{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
		}, nil
	}

	return &deck.SerialDialer{
		Port:     portName,
		BaudRate: baudRate,
		VID:      usbVID,
		PID:      usbPID,
	}, nil
}
