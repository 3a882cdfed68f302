package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
)

func TestSessionRepositoryUpdateIsGuarded(t *testing.T) {
	r := NewSessionRepository()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Create(&model.PairingSession{SessionID: "s1", Status: model.PairingStatusPending, CreatedAt: now, ExpiresAt: now.Add(model.PairingTTL)})

	errBoom := errors.New("boom")
	if _, err := r.Update("s1", func(s *model.PairingSession) error {
		s.Status = model.PairingStatusScanned
		return errBoom
	}); !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}

	got, _ := r.FindByID("s1")
	if got.Status != model.PairingStatusPending {
		t.Fatalf("failed update must not be stored, got %s", got.Status)
	}

	if _, err := r.Update("missing", func(*model.PairingSession) error { return nil }); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryReturnsCopies(t *testing.T) {
	r := NewSessionRepository()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Create(&model.PairingSession{
		SessionID: "s1", Status: model.PairingStatusScanned, ExpiresAt: now.Add(time.Hour),
		PairedDevice: &model.PairedDevice{DeviceID: "p1"},
	})

	got, _ := r.FindByID("s1")
	got.Status = model.PairingStatusFailed
	got.PairedDevice.DeviceID = "other"

	again, _ := r.FindByID("s1")
	if again.Status != model.PairingStatusScanned || again.PairedDevice.DeviceID != "p1" {
		t.Fatalf("stored session was mutated through a copy: %+v", again)
	}
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	r := NewSessionRepository()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Create(&model.PairingSession{SessionID: "old", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	r.Create(&model.PairingSession{SessionID: "new", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	later := now.Add(2 * time.Minute)
	if n := r.DeleteExpired(later); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if n := r.DeleteExpired(later); n != 0 {
		t.Fatalf("expected sweep to be idempotent, got %d", n)
	}
	if r.DeleteIfExpired("new", later) {
		t.Fatalf("unexpired session must not be deleted")
	}
	if len(r.List(nil)) != 1 {
		t.Fatalf("expected 1 session left")
	}
}
