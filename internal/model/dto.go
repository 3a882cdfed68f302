package model

import (
	"encoding/json"
	"time"
)

// ========== Pairing DTOs ==========

type CreatePairingRequest struct {
	ServerURL string `json:"server_url"` // optional, defaults to SERVER_URL
}

type CreatePairingResponse struct {
	SessionID string    `json:"session_id"`
	DeviceID  string    `json:"device_id"`
	QRImage   string    `json:"qr_image"` // data:image/png;base64,...
	QRPayload string    `json:"qr_payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ScanRequest struct {
	SessionID string `json:"session_id" binding:"required_without=QRData"`
	QRData    string `json:"qr_data"`
	PhoneInfo
}

type CancelPairingRequest struct {
	Reason string `json:"reason"`
}

type ValidateQRRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

type ValidateQRResponse struct {
	Valid bool `json:"valid"`
}

type ConnectionQRResponse struct {
	DeviceID  string `json:"device_id"`
	QRImage   string `json:"qr_image"`
	QRPayload string `json:"qr_payload"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	DeviceID   string   `json:"device_id" binding:"required,max=100"`
	DeviceName string   `json:"device_name" binding:"required,max=100"`
	Platform   Platform `json:"platform" binding:"required,oneof=android ios web"`
	Version    string   `json:"version" binding:"max=50"`
	PushToken  string   `json:"push_token" binding:"max=500"`
}

type NotifyDeviceRequest struct {
	Title string                 `json:"title" binding:"required"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data"`
}

type NotifyDeviceResponse struct {
	Delivered bool `json:"delivered"`         // written to a live socket
	Pushed    bool `json:"pushed,omitempty"` // sent through FCM instead
}

type BroadcastResponse struct {
	Delivered int `json:"delivered"`
}

type BroadcastRequest struct {
	Title string                 `json:"title" binding:"required"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data"`
}

// ========== Command DTOs ==========

type CommandRequest struct {
	DeviceID string          `json:"device_id" binding:"required"`
	Type     string          `json:"type" binding:"required"`
	Params   json.RawMessage `json:"params"`
}

// ========== WebSocket Message DTOs ==========

// WSMessage is the wire envelope for every frame in both directions
type WSMessage struct {
	Type      string      `json:"type"`
	DeviceID  string      `json:"deviceId"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"` // unix ms
}

// InboundWSMessage is a WSMessage whose data is decoded lazily
type InboundWSMessage struct {
	Type      string          `json:"type"`
	DeviceID  string          `json:"deviceId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Outbound message types. Nothing outside this set is ever written to a device.
const (
	WSTypeDeviceConnected    = "device_connected"
	WSTypePong               = "pong"
	WSTypeTaskStatusResponse = "task_status_response"
	WSTypeDeviceInfoResponse = "device_info_response"
	WSTypePairingStatus      = "pairing_status"
	WSTypeTaskCompleted      = "task_completed"
	WSTypeTaskFailed         = "task_failed"
	WSTypeProgressUpdate     = "progress_update"
	WSTypeNotification       = "notification"
	WSTypePairingComplete    = "pairing_complete"
)

// Inbound message types
const (
	WSTypePing              = "ping"
	WSTypeTaskStatusRequest = "task_status_request"
	WSTypeDeviceInfoRequest = "device_info_request"
	// WSTypePairingStatus doubles as the request type
)

var outboundWSTypes = map[string]bool{
	WSTypeDeviceConnected:    true,
	WSTypePong:               true,
	WSTypeTaskStatusResponse: true,
	WSTypeDeviceInfoResponse: true,
	WSTypePairingStatus:      true,
	WSTypeTaskCompleted:      true,
	WSTypeTaskFailed:         true,
	WSTypeProgressUpdate:     true,
	WSTypeNotification:       true,
	WSTypePairingComplete:    true,
}

// IsOutboundWSType reports whether t may be sent to a device
func IsOutboundWSType(t string) bool {
	return outboundWSTypes[t]
}

type DeviceConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
	ServerTime   int64  `json:"serverTime"`
	Message      string `json:"message"`
}

type TaskStatusRequest struct {
	TaskID string `json:"taskId"`
}

type TaskStatusEvent struct {
	TaskID   string      `json:"taskId"`
	Found    bool        `json:"found"`
	Status   TaskStatus  `json:"status,omitempty"`
	Progress int         `json:"progress"`
	Result   *TaskResult `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type DeviceInfoEvent struct {
	ConnectionID string `json:"connectionId"`
	ConnectedAt  int64  `json:"connectedAt"`
	LastPing     int64  `json:"lastPing"`
	ServerTime   int64  `json:"serverTime"`
}

type PairingStatusEvent struct {
	Status    string `json:"status"` // a PairingStatus or "not_paired"
	SessionID string `json:"sessionId,omitempty"`
}

// PairingStatusNotPaired is reported when no live session references the device
const PairingStatusNotPaired = "not_paired"

type TaskCompletedEvent struct {
	TaskID string      `json:"taskId"`
	Result *TaskResult `json:"result,omitempty"`
}

type TaskFailedEvent struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

type ProgressEvent struct {
	TaskID   string `json:"taskId"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

type NotificationEvent struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type PairingCompleteEvent struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
