package repository

import (
	"errors"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles database operations for Device
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// FindByID finds a device by its stable device id
func (r *DeviceRepository) FindByID(deviceID string) (*model.Device, error) {
	var device model.Device
	err := r.db.Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

// Save inserts the device or overwrites every column of an existing row
func (r *DeviceRepository) Save(device *model.Device) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		UpdateAll: true,
	}).Create(device).Error
}

// UpdateLastActive moves last_active_at forward; older timestamps are ignored
func (r *DeviceRepository) UpdateLastActive(deviceID string, at time.Time) error {
	return r.db.Model(&model.Device{}).
		Where("device_id = ? AND last_active_at < ?", deviceID, at).
		Update("last_active_at", at).Error
}

// UpdateStatus sets the administrative status of a device
func (r *DeviceRepository) UpdateStatus(deviceID string, status model.DeviceStatus) error {
	result := r.db.Model(&model.Device{}).
		Where("device_id = ?", deviceID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrDeviceNotFound
	}
	return nil
}

// List returns devices ordered by registration, optionally filtered by status
func (r *DeviceRepository) List(status model.DeviceStatus) ([]model.Device, error) {
	var devices []model.Device
	query := r.db.Order("registered_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&devices).Error
	return devices, err
}
