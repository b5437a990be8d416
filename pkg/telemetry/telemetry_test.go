// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The inkdeck authors

package telemetry

import (
	"sync"
	"testing"
)

// ============================================================
// Payload decoding
// ============================================================

func TestDecodeLightState(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
		wantErr bool
	}{
		{"on", `{"state":"ON"}`, true, false},
		{"off", `{"state":"OFF"}`, false, false},
		{"extra fields", `{"state":"ON","linkquality":87}`, true, false},
		{"empty state reads as on", `{"state":""}`, true, false},
		{"not json", `hello`, false, true},
		{"wrong shape", `[1,2,3]`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLightState([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeLightState error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("DecodeLightState = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeCO2(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"reading", `{"co2":1042}`, 1042, false},
		{"extra fields", `{"co2":640,"temperature":21.5}`, 640, false},
		{"missing field", `{"temp":20}`, 0, false},
		{"not json", `co2=640`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCO2([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeCO2 error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("DecodeCO2 = %d, want %d", got, tt.want)
			}
		})
	}
}

// ============================================================
// Store and accessors
// ============================================================

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("k", "v")
				s.Get("k")
			}
		}()
	}
	wg.Wait()
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Errorf("Get after concurrent writes = %q, %v", v, ok)
	}
}

func TestClient_AbsentValues(t *testing.T) {
	c := NewClient(Config{}, false)

	if _, ok := c.Lights(); ok {
		t.Error("Lights reported a value before anything was published")
	}
	if _, ok := c.CO2(); ok {
		t.Error("CO2 reported a value before anything was published")
	}
	// Disabled telemetry is inert, not an error.
	if err := c.Connect(); err != nil {
		t.Errorf("Connect with no broker = %v, want nil", err)
	}
	c.SetLights(true)
	c.Disconnect()
}

func TestClient_StoreRoundTrip(t *testing.T) {
	c := NewClient(Config{}, false)

	c.store.Set("lights", "on")
	if on, ok := c.Lights(); !ok || !on {
		t.Errorf("Lights = %v, %v after an on state was stored", on, ok)
	}
	c.store.Set("lights", "off")
	if on, ok := c.Lights(); !ok || on {
		t.Errorf("Lights = %v, %v after an off state was stored", on, ok)
	}

	c.store.Set("co2", "987")
	if ppm, ok := c.CO2(); !ok || ppm != 987 {
		t.Errorf("CO2 = %d, %v, want 987", ppm, ok)
	}
}
