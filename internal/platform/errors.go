package platform

import (
	"errors"
	"fmt"
)

// Graph-style error codes the pipeline switches behavior on.
const (
	CodeTokenInvalid    = 190
	CodeConsentRequired = 2018278
	CodeUserNotFound    = 803
)

// APIError is a structured platform error response.
type APIError struct {
	Code    int
	Subcode int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform error %d (%s): %s", e.Code, e.Type, e.Message)
}

// IsTokenInvalid reports whether the error is a 190-class credential
// failure. These flip the channel into reauthorization-required and are
// never retried.
func IsTokenInvalid(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeTokenInvalid
}

// IsConsentRequired reports whether the platform refused a profile lookup
// because the user has not granted consent.
func IsConsentRequired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeConsentRequired
}

// IsUserNotFound reports whether the platform has no user for the id.
func IsUserNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeUserNotFound
}

// IsProfileUnavailable covers the non-fatal profile lookup failures that
// fall back to a synthesized unknown identity instead of failing the event.
func IsProfileUnavailable(err error) bool {
	return IsConsentRequired(err) || IsUserNotFound(err)
}
