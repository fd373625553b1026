package errors

import "errors"

var (
	ErrNotFound = errors.New("poll not found")

	ErrOptionNotFound = errors.New("poll option not found")

	ErrClosed = errors.New("poll is closed")

	ErrAlreadyFinalized = errors.New("poll is already finalized")
)
