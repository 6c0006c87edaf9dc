package hub_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")

	// Ingestion pipeline errors
	ErrDuplicateEvent    = errors.New("event already processed or in flight")
	ErrMissingIdentifier = errors.New("missing required identifier")

	// Channel / token errors
	ErrReauthorizationRequired = errors.New("channel requires reauthorization")
	ErrTokenExpired            = errors.New("access token expired")

	// Delivery errors
	ErrAlreadySent    = errors.New("message already has a source id")
	ErrNotDeliverable = errors.New("message is not deliverable")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
