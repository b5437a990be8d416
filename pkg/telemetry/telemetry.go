// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

// Package telemetry feeds modes with push-based environment state over
// MQTT: a smart plug's on/off state and a CO2 sensor reading. Paho
// delivers messages on its own goroutine, so everything modes read goes
// through a mutex-protected store; the orchestrator thread never touches
// paho internals directly.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Store is a string-keyed snapshot of the latest telemetry values, safe
// for one writer goroutine and one reader thread.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the latest value for key, if any has been published.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set records a value for key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Well-known store keys.
const (
	keyLights = "lights"
	keyCO2    = "co2"
)

// Config selects the broker and the topics to follow. An empty Broker
// disables telemetry entirely; accessors then report absent values.
type Config struct {
	Broker   string // e.g. "tcp://broker.local:1883"
	ClientID string
	Username string
	Password string

	LightsTopic string // retains JSON {"state": "ON"|"OFF"}
	CO2Topic    string // retains JSON {"co2": <ppm>}
}

// Client subscribes to the configured topics and exposes their latest
// state through plain accessors.
type Client struct {
	cfg    Config
	client mqtt.Client
	store  *Store
	debug  bool
}

// NewClient prepares a client. Connect must be called before values flow.
func NewClient(cfg Config, debug bool) *Client {
	c := &Client{cfg: cfg, store: NewStore(), debug: debug}
	if cfg.Broker == "" {
		return c
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect starts the broker session. With retry enabled an unreachable
// broker is not an error; values simply stay absent until it comes up.
func (c *Client) Connect() error {
	if c.client == nil {
		return nil
	}
	log.Printf("[MQTT] Connecting to %s...", c.cfg.Broker)
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Disconnect closes the broker session.
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Client) onConnect(client mqtt.Client) {
	log.Printf("[MQTT] Connected to broker.")

	topics := map[string]mqtt.MessageHandler{}
	if c.cfg.LightsTopic != "" {
		topics[c.cfg.LightsTopic] = c.handleLights
	}
	if c.cfg.CO2Topic != "" {
		topics[c.cfg.CO2Topic] = c.handleCO2
	}

	for topic, handler := range topics {
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
		} else if c.debug {
			log.Printf("[MQTT] Subscribed to %s", topic)
		}
	}

	// Ask the plug to publish its current state.
	if c.cfg.LightsTopic != "" {
		client.Publish(c.cfg.LightsTopic+"/get", 0, false, `{"state":""}`)
	}
}

func (c *Client) handleLights(client mqtt.Client, msg mqtt.Message) {
	on, err := DecodeLightState(msg.Payload())
	if err != nil {
		log.Printf("[MQTT] Bad light payload on %s: %v", msg.Topic(), err)
		return
	}
	if on {
		c.store.Set(keyLights, "on")
	} else {
		c.store.Set(keyLights, "off")
	}
	if c.debug {
		log.Printf("[MQTT] Light: %v", on)
	}
}

func (c *Client) handleCO2(client mqtt.Client, msg mqtt.Message) {
	ppm, err := DecodeCO2(msg.Payload())
	if err != nil {
		log.Printf("[MQTT] Bad CO2 payload on %s: %v", msg.Topic(), err)
		return
	}
	c.store.Set(keyCO2, fmt.Sprintf("%d", ppm))
	if c.debug {
		log.Printf("[MQTT] CO2: %d", ppm)
	}
}

// DecodeLightState parses a plug state message.
func DecodeLightState(payload []byte) (bool, error) {
	var state struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(payload, &state); err != nil {
		return false, err
	}
	return state.State != "OFF", nil
}

// DecodeCO2 parses a CO2 sensor message.
func DecodeCO2(payload []byte) (int, error) {
	var state struct {
		CO2 int `json:"co2"`
	}
	if err := json.Unmarshal(payload, &state); err != nil {
		return 0, err
	}
	return state.CO2, nil
}

// Lights reports the last known plug state. The second result is false
// when telemetry is disabled or nothing has been published yet.
func (c *Client) Lights() (bool, bool) {
	v, ok := c.store.Get(keyLights)
	if !ok {
		return false, false
	}
	return v == "on", true
}

// SetLights publishes the desired plug state.
func (c *Client) SetLights(on bool) {
	if c.client == nil || c.cfg.LightsTopic == "" {
		return
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	c.client.Publish(c.cfg.LightsTopic+"/set", 0, false, fmt.Sprintf(`{"state":%q}`, state))
	if on {
		c.store.Set(keyLights, "on")
	} else {
		c.store.Set(keyLights, "off")
	}
}

// CO2 reports the last known CO2 reading in ppm.
func (c *Client) CO2() (int, bool) {
	v, ok := c.store.Get(keyCO2)
	if !ok {
		return 0, false
	}
	var ppm int
	if _, err := fmt.Sscanf(v, "%d", &ppm); err != nil {
		return 0, false
	}
	return ppm, true
}
