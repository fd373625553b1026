package errors

import "errors"

var (
	ErrNotFound = errors.New("room not found")

	ErrBookingNotFound = errors.New("room booking not found")

	ErrSlotLocked = errors.New("room slot is locked by another request")
)
