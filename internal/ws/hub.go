package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quocanhngo/devicelink/internal/model"
)

// DefaultIdleTimeout is how long a connection may stay silent before CleanupIdle drops it
const DefaultIdleTimeout = 5 * time.Minute

const taskLookupTimeout = 5 * time.Second

var errConnectionClosed = fmt.Errorf("connection closed: %w", model.ErrSocketUnavailable)

// ActivityTracker records device activity
type ActivityTracker interface {
	Touch(deviceID string)
}

// PairingConnector lets the hub advance and inspect pairing sessions
type PairingConnector interface {
	Connect(deviceID string) []*model.PairingSession
	StatusForDevice(deviceID string) (*model.PairingSession, bool)
}

// TaskLookup answers task status requests
type TaskLookup interface {
	FindByID(ctx context.Context, taskID string) (*model.Task, error)
}

// Hub owns every live device socket. At most one connection exists per
// device id; no method returns socket errors to its caller.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection

	registry ActivityTracker
	pairing  PairingConnector
	tasks    TaskLookup
	now      func() time.Time
}

// NewHub creates a connection hub
func NewHub(registry ActivityTracker, pairing PairingConnector, tasks TaskLookup, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{
		connections: make(map[string]*Connection),
		registry:    registry,
		pairing:     pairing,
		tasks:       tasks,
		now:         now,
	}
}

// AcceptConnection registers socket as the device's only connection. Any
// previous connection is swapped out under the lock and closed with 1000
// "superseded" after it is released.
func (h *Hub) AcceptConnection(deviceID string, socket Socket) *Connection {
	now := h.now()
	conn := newConnection(deviceID, socket, now)

	h.mu.Lock()
	prev, superseded := h.connections[deviceID]
	h.connections[deviceID] = conn
	total := len(h.connections)
	h.mu.Unlock()

	if superseded {
		prev.closeWith(websocket.CloseNormalClosure, "superseded")
		log.Printf("🔁 Connection %s for device %s superseded", prev.ID, deviceID)
	}

	log.Printf("✅ Device connected: %s (connection %s, total connections: %d)", deviceID, conn.ID, total)

	h.sendTo(conn, model.WSTypeDeviceConnected, model.DeviceConnectedEvent{
		ConnectionID: conn.ID,
		ServerTime:   now.UnixMilli(),
		Message:      "connected",
	})

	if h.pairing != nil {
		h.pairing.Connect(deviceID)
	}
	if h.registry != nil {
		h.registry.Touch(deviceID)
	}
	return conn
}

// HandleMessage processes one inbound frame. Bad input is logged and dropped.
func (h *Hub) HandleMessage(conn *Connection, raw []byte) {
	conn.markPing(h.now())

	var msg model.InboundWSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("⚠️  Dropping unparseable message from %s: %v", conn.DeviceID, err)
		return
	}

	switch msg.Type {
	case model.WSTypePing:
		if h.registry != nil {
			h.registry.Touch(conn.DeviceID)
		}
		h.sendTo(conn, model.WSTypePong, map[string]int64{"serverTime": h.now().UnixMilli()})

	case model.WSTypeTaskStatusRequest:
		h.handleTaskStatus(conn, msg.Data)

	case model.WSTypeDeviceInfoRequest:
		h.sendTo(conn, model.WSTypeDeviceInfoResponse, model.DeviceInfoEvent{
			ConnectionID: conn.ID,
			ConnectedAt:  conn.ConnectedAt.UnixMilli(),
			LastPing:     conn.LastPing().UnixMilli(),
			ServerTime:   h.now().UnixMilli(),
		})

	case model.WSTypePairingStatus:
		h.handlePairingStatus(conn)

	default:
		log.Printf("Unknown WebSocket message type from %s: %q", conn.DeviceID, msg.Type)
	}
}

func (h *Hub) handleTaskStatus(conn *Connection, data json.RawMessage) {
	var req model.TaskStatusRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("⚠️  Bad task_status_request from %s: %v", conn.DeviceID, err)
			return
		}
	}

	resp := model.TaskStatusEvent{TaskID: req.TaskID}
	if h.tasks != nil && req.TaskID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), taskLookupTimeout)
		task, err := h.tasks.FindByID(ctx, req.TaskID)
		cancel()

		switch {
		case err == nil && task.DeviceID == conn.DeviceID:
			resp.Found = true
			resp.Status = task.Status
			resp.Progress = task.Progress
			resp.Result = task.Result
			resp.Error = task.Error
		case err != nil && !errors.Is(err, model.ErrNotFound):
			log.Printf("⚠️  Task lookup failed for %s: %v", req.TaskID, err)
		}
	}
	h.sendTo(conn, model.WSTypeTaskStatusResponse, resp)
}

func (h *Hub) handlePairingStatus(conn *Connection) {
	resp := model.PairingStatusEvent{Status: model.PairingStatusNotPaired}
	if h.pairing != nil {
		if sess, ok := h.pairing.StatusForDevice(conn.DeviceID); ok {
			resp.Status = string(sess.Status)
			resp.SessionID = sess.SessionID
		}
	}
	h.sendTo(conn, model.WSTypePairingStatus, resp)
}

// Send writes a message to the device's live socket. It returns false when
// the device has no open socket or the write fails; nothing is queued.
func (h *Hub) Send(deviceID, msgType string, data interface{}) bool {
	h.mu.RLock()
	conn, ok := h.connections[deviceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.sendTo(conn, msgType, data)
}

func (h *Hub) sendTo(conn *Connection, msgType string, data interface{}) bool {
	if !model.IsOutboundWSType(msgType) {
		log.Printf("⚠️  Refusing to send unknown message type %q", msgType)
		return false
	}

	payload, err := json.Marshal(model.WSMessage{
		Type:      msgType,
		DeviceID:  conn.DeviceID,
		Data:      data,
		Timestamp: h.now().UnixMilli(),
	})
	if err != nil {
		log.Printf("Error marshaling %s message: %v", msgType, err)
		return false
	}

	if err := conn.write(payload); err != nil {
		if !errors.Is(err, model.ErrSocketUnavailable) {
			h.HandleError(conn, err)
		}
		return false
	}
	return true
}

// NotifyTaskCompleted tells a device its task finished
func (h *Hub) NotifyTaskCompleted(deviceID, taskID string, result *model.TaskResult) bool {
	return h.Send(deviceID, model.WSTypeTaskCompleted, model.TaskCompletedEvent{TaskID: taskID, Result: result})
}

// NotifyTaskFailed tells a device its task failed
func (h *Hub) NotifyTaskFailed(deviceID, taskID, errMsg string) bool {
	return h.Send(deviceID, model.WSTypeTaskFailed, model.TaskFailedEvent{TaskID: taskID, Error: errMsg})
}

// NotifyProgress reports task progress
func (h *Hub) NotifyProgress(deviceID, taskID string, progress int, message string) bool {
	return h.Send(deviceID, model.WSTypeProgressUpdate, model.ProgressEvent{TaskID: taskID, Progress: progress, Message: message})
}

// NotifyGeneric sends a free-form notification
func (h *Hub) NotifyGeneric(deviceID, title, body string, data map[string]interface{}) bool {
	return h.Send(deviceID, model.WSTypeNotification, model.NotificationEvent{Title: title, Body: body, Data: data})
}

// NotifyPairingComplete confirms a finished pairing to the phone
func (h *Hub) NotifyPairingComplete(deviceID, sessionID string) bool {
	return h.Send(deviceID, model.WSTypePairingComplete, model.PairingCompleteEvent{SessionID: sessionID, Message: "pairing complete"})
}

// Broadcast sends to every connected device and returns how many writes succeeded
func (h *Hub) Broadcast(msgType string, data interface{}) int {
	delivered := 0
	for _, deviceID := range h.ConnectedDevices() {
		if h.Send(deviceID, msgType, data) {
			delivered++
		}
	}
	return delivered
}

// HandleClose forgets a connection after its socket closed
func (h *Hub) HandleClose(conn *Connection, code int, reason string) {
	conn.terminate()

	h.mu.Lock()
	if current, ok := h.connections[conn.DeviceID]; ok && current == conn {
		delete(h.connections, conn.DeviceID)
	}
	h.mu.Unlock()

	log.Printf("❌ Device disconnected: %s (connection %s, code %d %s)", conn.DeviceID, conn.ID, code, reason)
}

// HandleError treats a socket error as an abnormal close
func (h *Hub) HandleError(conn *Connection, err error) {
	log.Printf("WebSocket error for %s: %v", conn.DeviceID, err)
	h.HandleClose(conn, websocket.CloseAbnormalClosure, err.Error())
}

// CleanupIdle closes connections that have been silent longer than timeout
func (h *Hub) CleanupIdle(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	now := h.now()

	var idle []*Connection
	h.mu.Lock()
	for deviceID, conn := range h.connections {
		if now.Sub(conn.LastPing()) > timeout {
			delete(h.connections, deviceID)
			idle = append(idle, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range idle {
		conn.closeWith(websocket.CloseNormalClosure, "idle timeout")
		log.Printf("🧹 Closed idle connection for %s", conn.DeviceID)
	}
	return len(idle)
}

// CloseAll shuts every connection down; used on server shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for deviceID, conn := range h.connections {
		conns = append(conns, conn)
		delete(h.connections, deviceID)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

// IsConnected reports whether the device has a live socket on this instance
func (h *Hub) IsConnected(deviceID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[deviceID]
	return ok
}

// Connection returns the device's current connection
func (h *Hub) Connection(deviceID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.connections[deviceID]
	return conn, ok
}

// ConnectedDevices returns the ids of every connected device
func (h *Hub) ConnectedDevices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.connections))
	for deviceID := range h.connections {
		ids = append(ids, deviceID)
	}
	return ids
}
