package board

import "errors"

var (
	// ErrNotFound is returned when the workspace or a referenced entity does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is neither owner nor member of
	// the workspace.
	ErrForbidden = errors.New("access denied")
	// ErrUnknownColumn is returned when a submitted snapshot references a
	// column id that does not exist in the workspace. Columns are created and
	// deleted by the workspace management endpoints, never by reconciliation.
	ErrUnknownColumn = errors.New("unknown column")
)

// PartialApplyError is implemented by storage errors raised after some but
// not all reconciliation mutations were committed. Callers can safely
// resubmit the same snapshot because reconciliation is a full replace.
type PartialApplyError interface {
	error
	PartialApply()
}
