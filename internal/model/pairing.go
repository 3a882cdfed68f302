package model

import (
	"time"
)

// PairingStatus is the state of a pairing handshake
type PairingStatus string

const (
	PairingStatusPending   PairingStatus = "PENDING"
	PairingStatusScanned   PairingStatus = "SCANNED"
	PairingStatusConnected PairingStatus = "CONNECTED"
	PairingStatusCompleted PairingStatus = "COMPLETED"
	PairingStatusFailed    PairingStatus = "FAILED"
)

// IsTerminal reports whether no further transition can leave s
func (s PairingStatus) IsTerminal() bool {
	return s == PairingStatusCompleted || s == PairingStatusFailed
}

// PairingEvent drives a pairing session through its states
type PairingEvent string

const (
	PairingEventScan     PairingEvent = "scan"
	PairingEventConnect  PairingEvent = "connect"
	PairingEventComplete PairingEvent = "complete"
	PairingEventFail     PairingEvent = "fail"
)

// pairingTransitions is the complete (state, event) -> state table.
// Complete is accepted from SCANNED because socket-open and the explicit
// complete call race in either order.
var pairingTransitions = map[PairingStatus]map[PairingEvent]PairingStatus{
	PairingStatusPending: {
		PairingEventScan: PairingStatusScanned,
		PairingEventFail: PairingStatusFailed,
	},
	PairingStatusScanned: {
		PairingEventConnect:  PairingStatusConnected,
		PairingEventComplete: PairingStatusCompleted,
		PairingEventFail:     PairingStatusFailed,
	},
	PairingStatusConnected: {
		PairingEventConnect:  PairingStatusConnected,
		PairingEventComplete: PairingStatusCompleted,
		PairingEventFail:     PairingStatusFailed,
	},
}

// Next returns the state reached by applying e to s
func (s PairingStatus) Next(e PairingEvent) (PairingStatus, bool) {
	next, ok := pairingTransitions[s][e]
	return next, ok
}

// PairingTTL is how long a pairing session stays usable after creation
const PairingTTL = 10 * time.Minute

// PairedDevice is the phone that scanned a session's QR code
type PairedDevice struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	Platform   Platform  `json:"platform"`
	PairedAt   time.Time `json:"paired_at"`
}

// PairingSession links a server-issued QR code to the phone that scans it.
// DeviceID is a session-scoped placeholder, not the phone's real id.
type PairingSession struct {
	SessionID     string        `json:"session_id"`
	DeviceID      string        `json:"device_id"`
	Status        PairingStatus `json:"status"`
	QRPayload     string        `json:"qr_payload"`
	QRImage       string        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	PairedDevice  *PairedDevice `json:"paired_device,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// IsExpiredAt checks if the session has passed its expiry at the given instant
func (s *PairingSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// PhoneInfo is what a scanning phone reports about itself
type PhoneInfo struct {
	DeviceID   string   `json:"device_id" binding:"required"`
	DeviceName string   `json:"device_name" binding:"required"`
	Platform   Platform `json:"platform" binding:"required,oneof=android ios web"`
	Version    string   `json:"version"`
	PushToken  string   `json:"push_token"`
}
