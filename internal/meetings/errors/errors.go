package errors

import "errors"

var (
	ErrNotFound = errors.New("meeting not found")

	ErrInvalidID = errors.New("invalid meeting ID format")

	ErrNotEditable = errors.New("meeting is not editable in its current status")

	ErrInvalidTimeRange = errors.New("end time must be after start time")
)
