package ledger

import "errors"

var (
	// ErrRecordNotFound is returned by update and delete when the target id
	// has no record. State is unchanged.
	ErrRecordNotFound = errors.New("record not found")

	// ErrIdentifierSpaceExhausted is returned by create once the allocator
	// counter has reached its maximum. Every later create fails the same way.
	ErrIdentifierSpaceExhausted = errors.New("identifier space exhausted")

	ErrInvalidCategory   = errors.New("invalid category")
	ErrInconsistentState = errors.New("inconsistent ledger state")
)

// Error codes reported to operators and in scenario traces.
const (
	CodeRecordNotFound           = "RecordNotFound"
	CodeIdentifierSpaceExhausted = "IdentifierSpaceExhausted"
	CodeInvalidCategory          = "InvalidCategory"
	CodeInconsistentState        = "InconsistentState"
)

// ErrorCode maps a ledger error (possibly wrapped) to its stable code.
// It returns "" for errors that do not originate in this package.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return CodeRecordNotFound
	case errors.Is(err, ErrIdentifierSpaceExhausted):
		return CodeIdentifierSpaceExhausted
	case errors.Is(err, ErrInvalidCategory):
		return CodeInvalidCategory
	case errors.Is(err, ErrInconsistentState):
		return CodeInconsistentState
	default:
		return ""
	}
}
