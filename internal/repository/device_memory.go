package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
)

// MemoryDeviceRepository keeps device records in process memory
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]model.Device
}

func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{devices: make(map[string]model.Device)}
}

func (r *MemoryDeviceRepository) FindByID(deviceID string) (*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, model.ErrDeviceNotFound
	}
	return &d, nil
}

func (r *MemoryDeviceRepository) Save(device *model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[device.DeviceID] = *device
	return nil
}

func (r *MemoryDeviceRepository) UpdateLastActive(deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok || !d.LastActiveAt.Before(at) {
		return nil
	}
	d.LastActiveAt = at
	r.devices[deviceID] = d
	return nil
}

func (r *MemoryDeviceRepository) UpdateStatus(deviceID string, status model.DeviceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return model.ErrDeviceNotFound
	}
	d.Status = status
	r.devices[deviceID] = d
	return nil
}

func (r *MemoryDeviceRepository) List(status model.DeviceStatus) ([]model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]model.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if status != "" && d.Status != status {
			continue
		}
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].RegisteredAt.Equal(devices[j].RegisteredAt) {
			return devices[i].DeviceID < devices[j].DeviceID
		}
		return devices[i].RegisteredAt.Before(devices[j].RegisteredAt)
	})
	return devices, nil
}
