package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrDelivery     = errors.New("delivery failed")

	// ErrInvalidCode is an ErrUnauthorized raised for a wrong, missing or expired
	// one-time code. Handlers answer it with 400 rather than 401.
	ErrInvalidCode = fmt.Errorf("invalid or expired code: %w", ErrUnauthorized)
)
