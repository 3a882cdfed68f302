package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the registry, pairing and transport layers.
// Specific errors wrap one of these so callers can match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("expired")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrSocketUnavailable = errors.New("socket unavailable")
)

var (
	ErrSessionNotFound = fmt.Errorf("pairing session %w", ErrNotFound)
	ErrSessionExpired  = fmt.Errorf("pairing session %w", ErrExpired)
	ErrDeviceNotFound  = fmt.Errorf("device %w", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
)
