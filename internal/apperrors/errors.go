package apperrors

import "errors"

// ErrNotFound indicates that a journey, segment, service or location does not exist.
var ErrNotFound = errors.New("resource not found")

// ErrForbidden indicates that the caller does not own the resource.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState indicates that the operation is not permitted in the current
// journey or segment status.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidInput indicates that request data failed validation checks.
var ErrInvalidInput = errors.New("invalid input")

// ErrLimitExceeded indicates that the owner already has the maximum number of
// journeys in planning.
var ErrLimitExceeded = errors.New("limit exceeded")

// ErrBookingFailed indicates that at least one supplier booking could not be created.
var ErrBookingFailed = errors.New("booking failed")
