package interfaces

import "errors"

var (
	// ErrScoreOutOfRange is returned when a score exceeds MaxScore.
	ErrScoreOutOfRange = errors.New("score must be between 0 and 1000")

	// ErrGradeTooLong is returned when a grade exceeds MaxGradeLength bytes.
	ErrGradeTooLong = errors.New("grade must be 3 bytes or less")

	// ErrMetadataTooLong is returned when metadata exceeds MaxMetadataLength bytes.
	ErrMetadataTooLong = errors.New("metadata must be 256 bytes or less")

	// ErrUnauthorized is returned when the caller fails access control.
	ErrUnauthorized = errors.New("unauthorized: only authority or active agents can perform this action")

	// ErrAgentNotActive accompanies ErrUnauthorized when the caller is a
	// deactivated agent. It never appears on its own.
	ErrAgentNotActive = errors.New("agent is not active")

	// ErrUpdateCountExhausted is returned when a score record has been
	// updated math.MaxUint32 times and cannot count another update.
	ErrUpdateCountExhausted = errors.New("score record update count exhausted")

	// ErrAlreadyInitialized is returned by a second initialize.
	ErrAlreadyInitialized = errors.New("registry already initialized")

	// ErrAlreadyExists is returned when adding an agent that already has a record.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotInitialized is returned by operations on a registry without config.
	ErrNotInitialized = errors.New("registry not initialized")

	// ErrAgentNotFound is returned when removing an agent that was never added.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidBatch is returned for a batch lookup with no wallets or more
	// than MaxBatchSize of them.
	ErrInvalidBatch = errors.New("batch must contain between 1 and 10 wallets")

	// ErrNotFound is returned by queries for records that do not exist.
	ErrNotFound = errors.New("not found")
)
