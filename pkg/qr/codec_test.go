package qr

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec() (*Codec, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewCodecWithClock(clk.Now), clk
}

func TestEncodePairingRoundTrip(t *testing.T) {
	c, clk := newTestCodec()

	enc, err := c.EncodePairing("s1", "d1", "http://h:3000")
	if err != nil {
		t.Fatalf("EncodePairing: %v", err)
	}
	if !strings.HasPrefix(enc.Image, "data:image/png;base64,") {
		t.Fatalf("expected png data url, got %q", enc.Image[:30])
	}

	clk.Advance(4 * time.Minute)
	p, err := c.Decode(enc.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Type != TypeDevicePairing || p.DeviceID != "d1" || p.SessionID != "s1" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.ServerURL != "http://h:3000" || p.Version != PayloadVersion {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestEncodeConnectionDerivesWSURL(t *testing.T) {
	c, _ := newTestCodec()

	enc, err := c.EncodeConnection("d1", "https://api.example.com/")
	if err != nil {
		t.Fatalf("EncodeConnection: %v", err)
	}
	p, err := c.Decode(enc.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Type != TypeDeviceConnection || p.WSURL != "wss://api.example.com/ws" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeExpiredAfterFiveMinutes(t *testing.T) {
	c, clk := newTestCodec()
	enc, _ := c.EncodePairing("s1", "d1", "http://h:3000")

	clk.Advance(5*time.Minute + time.Second)
	if _, err := c.Decode(enc.Payload); !errors.Is(err, model.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// the permissive form still accepts it
	if !c.Validate(enc.Payload) {
		t.Fatalf("expected Validate to accept a 5 minute old payload")
	}

	clk.Advance(5 * time.Minute)
	if c.Validate(enc.Payload) {
		t.Fatalf("expected Validate to reject a payload older than 10 minutes")
	}
}

func TestDecodeMalformed(t *testing.T) {
	c, clk := newTestCodec()
	ts := clk.Now().UnixMilli()

	cases := map[string]interface{}{
		"missing device": map[string]interface{}{"type": TypeDevicePairing, "serverUrl": "http://h", "timestamp": ts},
		"missing type":   map[string]interface{}{"deviceId": "d1", "serverUrl": "http://h", "timestamp": ts},
		"missing ts":     map[string]interface{}{"type": TypeDevicePairing, "deviceId": "d1", "serverUrl": "http://h"},
		"missing url":    map[string]interface{}{"type": TypeDevicePairing, "deviceId": "d1", "timestamp": ts},
		"missing ws url": map[string]interface{}{"type": TypeDeviceConnection, "deviceId": "d1", "timestamp": ts},
		"unknown type":   map[string]interface{}{"type": "other", "deviceId": "d1", "timestamp": ts},
	}
	for name, body := range cases {
		raw, _ := json.Marshal(body)
		if _, err := c.Decode(string(raw)); !errors.Is(err, model.ErrMalformedPayload) {
			t.Errorf("%s: expected ErrMalformedPayload, got %v", name, err)
		}
		if c.Validate(string(raw)) {
			t.Errorf("%s: expected Validate false", name)
		}
	}

	if _, err := c.Decode("not json"); !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for garbage, got %v", err)
	}
}

func TestWebSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://h:3000":          "ws://h:3000/ws",
		"https://h":              "wss://h/ws",
		"http://h:3000/base/":    "ws://h:3000/base/ws",
		"https://api.example.io": "wss://api.example.io/ws",
	}
	for in, want := range cases {
		got, err := WebSocketURL(in)
		if err != nil {
			t.Fatalf("WebSocketURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("WebSocketURL(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := WebSocketURL("not a url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
