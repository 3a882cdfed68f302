package model

import (
	"time"
)

// Platform identifies the operating system family of a paired device
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

// Valid reports whether p is one of the supported platforms
func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// DeviceStatus is the administrative state of a device record
type DeviceStatus string

const (
	DeviceStatusActive   DeviceStatus = "active"
	DeviceStatusInactive DeviceStatus = "inactive"
	DeviceStatusDisabled DeviceStatus = "disabled"
)

// Valid reports whether s is a known device status
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusActive, DeviceStatusInactive, DeviceStatusDisabled:
		return true
	}
	return false
}

// NeverActive is the lastActiveAt sentinel for devices that registered but never
// opened a realtime channel
var NeverActive = time.Unix(0, 0).UTC()

// Device is a known phone/tablet identity. Records are never hard-deleted.
type Device struct {
	DeviceID     string       `json:"device_id" gorm:"primaryKey;size:100"`
	DeviceName   string       `json:"device_name" gorm:"size:100;not null"`
	Platform     Platform     `json:"platform" gorm:"size:20;not null"`
	Version      string       `json:"version" gorm:"size:50;default:''"`
	PushToken    string       `json:"-" gorm:"size:500;default:''"` // FCM token, optional
	Status       DeviceStatus `json:"status" gorm:"size:20;not null;default:'active';index"`
	RegisteredAt time.Time    `json:"registered_at" gorm:"not null"`
	LastActiveAt time.Time    `json:"last_active_at" gorm:"not null"`
}

// TableName overrides the gorm default
func (Device) TableName() string {
	return "devices"
}

// IsDisabled checks if the device was soft-deleted
func (d *Device) IsDisabled() bool {
	return d.Status == DeviceStatusDisabled
}

// DeviceResponse adds derived reachability to a device record
type DeviceResponse struct {
	Device
	Online    bool `json:"online"`
	Connected bool `json:"connected"`
}
