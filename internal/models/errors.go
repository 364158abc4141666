package models

import "errors"

// Sentinel errors shared between repositories, services and the HTTP boundary.
var (
	// ErrNotFound indicates a missing row.
	ErrNotFound = errors.New("not found")

	// ErrConfigInactive indicates the slot config does not cover the requested range.
	ErrConfigInactive = errors.New("slot config inactive for requested range")

	// ErrSlotConflict indicates a slot is no longer available; caller should re-query.
	ErrSlotConflict = errors.New("slot no longer available")

	// ErrInvalidState indicates an illegal state transition.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrSessionAlreadyStarted indicates the booking already has a charging session.
	ErrSessionAlreadyStarted = errors.New("charging session already started")

	// ErrForbidden indicates the actor does not own the resource.
	ErrForbidden = errors.New("operation not permitted for this actor")

	// ErrAmountMismatch indicates the paid amount differs from the invoice amount.
	ErrAmountMismatch = errors.New("payment amount does not match invoice")

	// ErrTripletFull indicates an append to a closed violation triplet.
	// Callers that fetch-or-create the open triplet should never see it.
	ErrTripletFull = errors.New("violation triplet already closed")
)
