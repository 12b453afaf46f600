package events

import "errors"

var (
	// ErrNotArchived is returned when an archived event does not exist.
	ErrNotArchived = errors.New("event not archived")

	// ErrAlreadyArchived is returned when an archive already holds an
	// envelope under the same sequence number.
	ErrAlreadyArchived = errors.New("sequence number already archived")
)
