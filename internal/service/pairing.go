package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/repository"
	"github.com/quocanhngo/devicelink/pkg/qr"
)

// PairingService drives the QR pairing handshake
type PairingService struct {
	sessions         *repository.SessionRepository
	registry         *DeviceRegistry
	codec            *qr.Codec
	now              func() time.Time
	defaultServerURL string
}

func NewPairingService(
	sessions *repository.SessionRepository,
	registry *DeviceRegistry,
	codec *qr.Codec,
	now func() time.Time,
	defaultServerURL string,
) *PairingService {
	if now == nil {
		now = time.Now
	}
	return &PairingService{
		sessions:         sessions,
		registry:         registry,
		codec:            codec,
		now:              now,
		defaultServerURL: defaultServerURL,
	}
}

// CreateSession opens a PENDING session and renders its QR code
func (s *PairingService) CreateSession(serverURL string) (*model.CreatePairingResponse, error) {
	if serverURL == "" {
		serverURL = s.defaultServerURL
	}
	if serverURL == "" {
		return nil, fmt.Errorf("%w: server url is required", model.ErrMalformedPayload)
	}

	now := s.now()
	sessionID := uuid.NewString()
	placeholderID := uuid.NewString()

	encoded, err := s.codec.EncodePairing(sessionID, placeholderID, serverURL)
	if err != nil {
		return nil, err
	}

	session := &model.PairingSession{
		SessionID: sessionID,
		DeviceID:  placeholderID,
		Status:    model.PairingStatusPending,
		QRPayload: encoded.Payload,
		QRImage:   encoded.Image,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(model.PairingTTL),
	}
	s.sessions.Create(session)
	log.Printf("🔗 Pairing session created: %s (expires %s)", sessionID, session.ExpiresAt.Format(time.RFC3339))

	return &model.CreatePairingResponse{
		SessionID: sessionID,
		DeviceID:  placeholderID,
		QRImage:   encoded.Image,
		QRPayload: encoded.Payload,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Scan binds a phone to a PENDING session. The phone is registered before
// the session moves to SCANNED, so a registration failure leaves the session
// PENDING and the phone may retry. Only the first of concurrent scans wins;
// the rest get ErrInvalidTransition.
func (s *PairingService) Scan(sessionID string, phone model.PhoneInfo) (*model.PairingSession, error) {
	if err := validatePhone(phone); err != nil {
		return nil, err
	}
	if err := s.checkTransition(sessionID, model.PairingEventScan); err != nil {
		return nil, err
	}

	if _, err := s.registry.Register(model.RegisterDeviceRequest{
		DeviceID:   phone.DeviceID,
		DeviceName: phone.DeviceName,
		Platform:   phone.Platform,
		Version:    phone.Version,
		PushToken:  phone.PushToken,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	session, err := s.transition(sessionID, model.PairingEventScan, func(sess *model.PairingSession) {
		sess.PairedDevice = &model.PairedDevice{
			DeviceID:   phone.DeviceID,
			DeviceName: phone.DeviceName,
			Platform:   phone.Platform,
			PairedAt:   now,
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📷 Pairing session %s scanned by %s (%s)", sessionID, phone.DeviceID, phone.DeviceName)
	return session, nil
}

// ScanQR decodes a scanned payload and scans the session it names
func (s *PairingService) ScanQR(rawPayload string, phone model.PhoneInfo) (*model.PairingSession, error) {
	payload, err := s.codec.Decode(rawPayload)
	if err != nil {
		return nil, err
	}
	if payload.Type != qr.TypeDevicePairing || payload.SessionID == "" {
		return nil, fmt.Errorf("%w: not a pairing code", model.ErrMalformedPayload)
	}
	return s.Scan(payload.SessionID, phone)
}

// Connect is called when a device opens its socket. It promotes any live
// session paired to exactly this device; no match is not an error.
func (s *PairingService) Connect(deviceID string) []*model.PairingSession {
	now := s.now()
	updated := s.sessions.UpdateWhere(
		func(sess *model.PairingSession) bool {
			return sess.PairedDevice != nil &&
				sess.PairedDevice.DeviceID == deviceID &&
				!sess.IsExpiredAt(now)
		},
		func(sess *model.PairingSession) error {
			next, ok := sess.Status.Next(model.PairingEventConnect)
			if !ok {
				return model.ErrInvalidTransition
			}
			sess.Status = next
			sess.UpdatedAt = now
			return nil
		},
	)

	if len(updated) > 0 {
		s.registry.Touch(deviceID)
		for _, sess := range updated {
			log.Printf("🔌 Pairing session %s connected (device %s)", sess.SessionID, deviceID)
		}
	}
	return updated
}

// Complete finishes a scanned session. A prior CONNECTED state is not
// required because the socket may open after this call.
func (s *PairingService) Complete(sessionID string) (*model.PairingSession, error) {
	session, err := s.transition(sessionID, model.PairingEventComplete, nil)
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	// TODO: confirm with product whether completing without a realtime channel should be rejected.
	log.Printf("🎉 Pairing session %s completed (device %s)", sessionID, session.PairedDevice.DeviceID)
	return session, nil
}

// Fail moves a non-terminal session to FAILED
func (s *PairingService) Fail(sessionID, reason string) (*model.PairingSession, error) {
	session, err := s.transition(sessionID, model.PairingEventFail, func(sess *model.PairingSession) {
		sess.FailureReason = reason
	})
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	log.Printf("❌ Pairing session %s failed: %s", sessionID, reason)
	return session, nil
}

// GetStatus returns a session; expired sessions are evicted and reported missing
func (s *PairingService) GetStatus(sessionID string) (*model.PairingSession, error) {
	if s.sessions.DeleteIfExpired(sessionID, s.now()) {
		return nil, model.ErrSessionNotFound
	}
	return s.sessions.FindByID(sessionID)
}

// StatusForDevice returns the most recently updated live session paired to deviceID
func (s *PairingService) StatusForDevice(deviceID string) (*model.PairingSession, bool) {
	now := s.now()
	matches := s.sessions.List(func(sess *model.PairingSession) bool {
		return sess.PairedDevice != nil &&
			sess.PairedDevice.DeviceID == deviceID &&
			!sess.IsExpiredAt(now)
	})

	var latest *model.PairingSession
	for _, sess := range matches {
		if latest == nil || sess.UpdatedAt.After(latest.UpdatedAt) {
			latest = sess
		}
	}
	return latest, latest != nil
}

// ActiveSessions lists every unexpired session
func (s *PairingService) ActiveSessions() []*model.PairingSession {
	now := s.now()
	return s.sessions.List(func(sess *model.PairingSession) bool {
		return !sess.IsExpiredAt(now)
	})
}

// CleanupExpired deletes every expired session. Safe to call repeatedly.
func (s *PairingService) CleanupExpired() int {
	removed := s.sessions.DeleteExpired(s.now())
	if removed > 0 {
		log.Printf("🧹 Removed %d expired pairing sessions", removed)
	}
	return removed
}

// checkTransition reports whether event could currently apply to the session.
// It is advisory; transition re-checks under the store lock.
func (s *PairingService) checkTransition(sessionID string, event model.PairingEvent) error {
	if s.sessions.DeleteIfExpired(sessionID, s.now()) {
		return model.ErrSessionExpired
	}
	sess, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Status.Next(event); !ok {
		return fmt.Errorf("%w: cannot %s a %s session", model.ErrInvalidTransition, event, sess.Status)
	}
	return nil
}

// transition applies event to a session as one guarded step
func (s *PairingService) transition(sessionID string, event model.PairingEvent, mutate func(*model.PairingSession)) (*model.PairingSession, error) {
	now := s.now()
	if s.sessions.DeleteIfExpired(sessionID, now) {
		return nil, model.ErrSessionExpired
	}

	session, err := s.sessions.Update(sessionID, func(sess *model.PairingSession) error {
		if sess.IsExpiredAt(now) {
			return model.ErrSessionExpired
		}
		next, ok := sess.Status.Next(event)
		if !ok {
			return fmt.Errorf("%w: cannot %s a %s session", model.ErrInvalidTransition, event, sess.Status)
		}
		sess.Status = next
		sess.UpdatedAt = now
		if mutate != nil {
			mutate(sess)
		}
		return nil
	})
	if errors.Is(err, model.ErrSessionExpired) {
		s.sessions.DeleteIfExpired(sessionID, now)
	}
	return session, err
}

func validatePhone(phone model.PhoneInfo) error {
	switch {
	case phone.DeviceID == "":
		return fmt.Errorf("%w: device id is required", model.ErrMalformedPayload)
	case phone.DeviceName == "":
		return fmt.Errorf("%w: device name is required", model.ErrMalformedPayload)
	case !phone.Platform.Valid():
		return fmt.Errorf("%w: unsupported platform %q", model.ErrMalformedPayload, phone.Platform)
	}
	return nil
}
