package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
)

// OnlineWindow is how recent activity must be for a device to count as online
const OnlineWindow = 5 * time.Minute

// DeviceStore persists device records
type DeviceStore interface {
	FindByID(deviceID string) (*model.Device, error)
	Save(device *model.Device) error
	UpdateLastActive(deviceID string, at time.Time) error
	UpdateStatus(deviceID string, status model.DeviceStatus) error
	List(status model.DeviceStatus) ([]model.Device, error)
}

// DeviceRegistry is the catalog of known devices and their activity
type DeviceRegistry struct {
	store DeviceStore
	now   func() time.Time
}

func NewDeviceRegistry(store DeviceStore, now func() time.Time) *DeviceRegistry {
	if now == nil {
		now = time.Now
	}
	return &DeviceRegistry{store: store, now: now}
}

// IsOnlineAt is the online heuristic: activity within OnlineWindow of now
func IsOnlineAt(now, lastActiveAt time.Time) bool {
	return now.Sub(lastActiveAt) <= OnlineWindow
}

// Register creates or refreshes a device record. Registering is not proof of a
// live channel, so lastActiveAt is always reset to NeverActive.
func (r *DeviceRegistry) Register(req model.RegisterDeviceRequest) (*model.Device, error) {
	if req.DeviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", model.ErrMalformedPayload)
	}
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("%w: unsupported platform %q", model.ErrMalformedPayload, req.Platform)
	}

	now := r.now()
	device, err := r.store.FindByID(req.DeviceID)
	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		device = &model.Device{
			DeviceID:     req.DeviceID,
			Status:       model.DeviceStatusActive,
			RegisteredAt: now,
		}
	case err != nil:
		return nil, err
	}

	device.DeviceName = req.DeviceName
	device.Platform = req.Platform
	device.Version = req.Version
	if req.PushToken != "" {
		device.PushToken = req.PushToken
	}
	if device.Status == model.DeviceStatusInactive {
		device.Status = model.DeviceStatusActive
	}
	device.LastActiveAt = model.NeverActive

	if err := r.store.Save(device); err != nil {
		return nil, fmt.Errorf("failed to save device: %w", err)
	}
	log.Printf("📱 Device registered: %s (%s, %s)", device.DeviceID, device.DeviceName, device.Platform)
	return device, nil
}

// Touch records activity for a device. Unknown ids are ignored.
func (r *DeviceRegistry) Touch(deviceID string) {
	if err := r.store.UpdateLastActive(deviceID, r.now()); err != nil {
		log.Printf("⚠️  Failed to touch device %s: %v", deviceID, err)
	}
}

// IsOnline reports the activity heuristic; it says nothing about live sockets
// and ignores status, so a disabled device can still look online
func (r *DeviceRegistry) IsOnline(deviceID string) bool {
	device, err := r.store.FindByID(deviceID)
	if err != nil {
		return false
	}
	return IsOnlineAt(r.now(), device.LastActiveAt)
}

// Get returns a single device
func (r *DeviceRegistry) Get(deviceID string) (*model.Device, error) {
	return r.store.FindByID(deviceID)
}

// List returns every device, optionally restricted to one status
func (r *DeviceRegistry) List(status model.DeviceStatus) ([]model.Device, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrMalformedPayload, status)
	}
	return r.store.List(status)
}

// Disable soft-deletes a device
func (r *DeviceRegistry) Disable(deviceID string) error {
	if err := r.store.UpdateStatus(deviceID, model.DeviceStatusDisabled); err != nil {
		return err
	}
	log.Printf("🚫 Device disabled: %s", deviceID)
	return nil
}

// Enable reactivates a disabled device
func (r *DeviceRegistry) Enable(deviceID string) error {
	return r.store.UpdateStatus(deviceID, model.DeviceStatusActive)
}
