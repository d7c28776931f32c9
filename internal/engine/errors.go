package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/ledger/internal/ledger"
)

var (
	// ErrStopped is returned for requests submitted after Stop, and for
	// requests still queued when the engine stops.
	ErrStopped = errors.New("engine stopped")

	// ErrUnauthenticated is returned when a mutation carries no caller.
	// The ledger never sees such a request.
	ErrUnauthenticated = errors.New("unauthenticated caller")
)

// CommitError reports that a prepared change could not be made durable.
// The in-memory ledger was not modified and no event was emitted.
type CommitError struct {
	Event     ledger.Event
	RequestID string
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s (request=%s): %v", e.Event, e.RequestID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// IsCommitError returns true if the error is a durable-commit failure.
// Uses errors.As to handle wrapped errors.
func IsCommitError(err error) bool {
	var ce *CommitError
	return errors.As(err, &ce)
}

// ErrorCode returns a stable code for err: the ledger code when there is
// one, otherwise an engine code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if code := ledger.ErrorCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrStopped):
		return "Stopped"
	case IsCommitError(err):
		return "CommitFailed"
	default:
		return "Internal"
	}
}
