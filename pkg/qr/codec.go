package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
	goqrcode "github.com/skip2/go-qrcode"
)

const (
	// Payload types
	TypeDevicePairing    = "device_pairing"
	TypeDeviceConnection = "device_connection"

	// PayloadVersion is bumped when the envelope changes shape
	PayloadVersion = "1.0"

	// Decode refuses payloads older than this
	decodeMaxAge = 5 * time.Minute
	// Validate still accepts payloads up to this age
	validateMaxAge = 10 * time.Minute

	defaultImageSize = 256
	wsPath           = "/ws"
)

// Payload is the JSON envelope carried inside a QR code
type Payload struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	DeviceID  string `json:"deviceId"`
	ServerURL string `json:"serverUrl,omitempty"`
	WSURL     string `json:"wsUrl,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix ms
	Version   string `json:"version"`
}

// Encoded is a payload together with its rendered image
type Encoded struct {
	Payload string // raw JSON
	Image   string // data:image/png;base64,...
}

// Codec encodes and decodes pairing QR payloads
type Codec struct {
	now       func() time.Time
	imageSize int
}

// NewCodec creates a codec backed by the wall clock
func NewCodec() *Codec {
	return NewCodecWithClock(time.Now)
}

// NewCodecWithClock creates a codec reading time from now
func NewCodecWithClock(now func() time.Time) *Codec {
	return &Codec{now: now, imageSize: defaultImageSize}
}

// EncodePairing builds the QR code shown to an unpaired phone
func (c *Codec) EncodePairing(sessionID, deviceID, serverURL string) (*Encoded, error) {
	return c.encode(Payload{
		Type:      TypeDevicePairing,
		SessionID: sessionID,
		DeviceID:  deviceID,
		ServerURL: serverURL,
		Timestamp: c.now().UnixMilli(),
		Version:   PayloadVersion,
	})
}

// EncodeConnection builds the QR code a known device scans to reconnect
func (c *Codec) EncodeConnection(deviceID, serverURL string) (*Encoded, error) {
	wsURL, err := WebSocketURL(serverURL)
	if err != nil {
		return nil, err
	}
	return c.encode(Payload{
		Type:      TypeDeviceConnection,
		DeviceID:  deviceID,
		WSURL:     wsURL,
		Timestamp: c.now().UnixMilli(),
		Version:   PayloadVersion,
	})
}

func (c *Codec) encode(p Payload) (*Encoded, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal qr payload: %w", err)
	}

	png, err := goqrcode.Encode(string(raw), goqrcode.Medium, c.imageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr image: %w", err)
	}

	return &Encoded{
		Payload: string(raw),
		Image:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Decode parses a scanned payload. It is the strict form that gates consumption.
func (c *Codec) Decode(raw string) (*Payload, error) {
	p, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if c.age(p) > decodeMaxAge {
		return nil, fmt.Errorf("qr payload %w", model.ErrExpired)
	}
	return p, nil
}

// Validate is the permissive check used to decide whether a code is still
// worth showing. It never fails loudly.
func (c *Codec) Validate(raw string) bool {
	p, err := parse(raw)
	if err != nil {
		return false
	}
	return c.age(p) <= validateMaxAge
}

func (c *Codec) age(p *Payload) time.Duration {
	return c.now().Sub(time.UnixMilli(p.Timestamp))
}

func parse(raw string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}

	switch {
	case p.Type == "":
		return nil, fmt.Errorf("%w: missing type", model.ErrMalformedPayload)
	case p.DeviceID == "":
		return nil, fmt.Errorf("%w: missing deviceId", model.ErrMalformedPayload)
	case p.Timestamp <= 0:
		return nil, fmt.Errorf("%w: missing timestamp", model.ErrMalformedPayload)
	}

	switch p.Type {
	case TypeDevicePairing:
		if p.ServerURL == "" {
			return nil, fmt.Errorf("%w: missing serverUrl", model.ErrMalformedPayload)
		}
	case TypeDeviceConnection:
		if p.WSURL == "" {
			return nil, fmt.Errorf("%w: missing wsUrl", model.ErrMalformedPayload)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", model.ErrMalformedPayload, p.Type)
	}

	return &p, nil
}

// WebSocketURL derives the socket endpoint from the server's HTTP base URL
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid server url %q", model.ErrMalformedPayload, serverURL)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + wsPath
	return u.String(), nil
}
