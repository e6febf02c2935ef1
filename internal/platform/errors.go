package platform

import "github.com/pkg/errors"

// Sentinel error kinds per spec.md §4.1 Errors / §7 ConfigurationError.
var (
	// ErrInvalidFQBN is returned when the FQBN triple is malformed.
	ErrInvalidFQBN = errors.New("invalid FQBN")
	// ErrDescriptorMissing is returned when platform.txt or boards.txt cannot be located.
	ErrDescriptorMissing = errors.New("platform descriptor missing")
	// ErrUnknownBoard is returned when no "<boardId>." lines exist in boards.txt.
	ErrUnknownBoard = errors.New("unknown board")
)
