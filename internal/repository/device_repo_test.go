package repository

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// deviceStore is the surface shared by both device repositories
type deviceStore interface {
	FindByID(deviceID string) (*model.Device, error)
	Save(device *model.Device) error
	UpdateLastActive(deviceID string, at time.Time) error
	UpdateStatus(deviceID string, status model.DeviceStatus) error
	List(status model.DeviceStatus) ([]model.Device, error)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:repo_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Device{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func deviceStores(t *testing.T) map[string]deviceStore {
	return map[string]deviceStore{
		"gorm":   NewDeviceRepository(openTestDB(t)),
		"memory": NewMemoryDeviceRepository(),
	}
}

func TestDeviceStoreSaveAndFind(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range deviceStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.FindByID("p1"); !errors.Is(err, model.ErrDeviceNotFound) {
				t.Fatalf("expected ErrDeviceNotFound, got %v", err)
			}

			d := &model.Device{
				DeviceID:     "p1",
				DeviceName:   "Pixel",
				Platform:     model.PlatformAndroid,
				Status:       model.DeviceStatusActive,
				RegisteredAt: base,
				LastActiveAt: model.NeverActive,
			}
			if err := store.Save(d); err != nil {
				t.Fatalf("Save: %v", err)
			}

			// upsert overwrites mutable fields
			d.DeviceName = "Pixel 8"
			d.Version = "2.0"
			if err := store.Save(d); err != nil {
				t.Fatalf("Save again: %v", err)
			}

			got, err := store.FindByID("p1")
			if err != nil {
				t.Fatalf("FindByID: %v", err)
			}
			if got.DeviceName != "Pixel 8" || got.Version != "2.0" {
				t.Fatalf("unexpected device: %+v", got)
			}

			list, err := store.List("")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 1 {
				t.Fatalf("expected 1 device, got %d", len(list))
			}
		})
	}
}

func TestDeviceStoreLastActiveNeverMovesBack(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range deviceStores(t) {
		t.Run(name, func(t *testing.T) {
			_ = store.Save(&model.Device{
				DeviceID: "p1", DeviceName: "Pixel", Platform: model.PlatformAndroid,
				Status: model.DeviceStatusActive, RegisteredAt: base, LastActiveAt: model.NeverActive,
			})

			if err := store.UpdateLastActive("p1", base.Add(time.Minute)); err != nil {
				t.Fatalf("UpdateLastActive: %v", err)
			}
			if err := store.UpdateLastActive("p1", base); err != nil {
				t.Fatalf("UpdateLastActive: %v", err)
			}
			got, _ := store.FindByID("p1")
			if !got.LastActiveAt.Equal(base.Add(time.Minute)) {
				t.Fatalf("expected last active %v, got %v", base.Add(time.Minute), got.LastActiveAt)
			}

			// unknown ids are ignored
			if err := store.UpdateLastActive("nope", base); err != nil {
				t.Fatalf("expected no error for unknown id, got %v", err)
			}
		})
	}
}

func TestDeviceStoreStatusFilter(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range deviceStores(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c"} {
				_ = store.Save(&model.Device{
					DeviceID: id, DeviceName: id, Platform: model.PlatformIOS,
					Status: model.DeviceStatusActive, RegisteredAt: base.Add(time.Duration(i) * time.Second),
					LastActiveAt: model.NeverActive,
				})
			}
			if err := store.UpdateStatus("b", model.DeviceStatusDisabled); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			if err := store.UpdateStatus("zzz", model.DeviceStatusDisabled); !errors.Is(err, model.ErrDeviceNotFound) {
				t.Fatalf("expected ErrDeviceNotFound, got %v", err)
			}

			active, _ := store.List(model.DeviceStatusActive)
			if len(active) != 2 || active[0].DeviceID != "a" || active[1].DeviceID != "c" {
				t.Fatalf("unexpected active list: %+v", active)
			}
			disabled, _ := store.List(model.DeviceStatusDisabled)
			if len(disabled) != 1 || disabled[0].DeviceID != "b" {
				t.Fatalf("unexpected disabled list: %+v", disabled)
			}
		})
	}
}
