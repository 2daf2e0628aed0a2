// Package apperr defines the error taxonomy shared across the booking core.
// Integration failures (calendar, classifier, outbound send) are deliberately
// absent: those are degraded-and-continue at the call site, never propagated.
package apperr

import "errors"

var (
	// ErrNotFound covers absent businesses, services, and appointments.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers missing booking fields and out-of-range selections.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotTaken is returned when the requested slot overlaps fresh busy
	// data or an existing appointment at creation time.
	ErrSlotTaken = errors.New("slot no longer available")
)
