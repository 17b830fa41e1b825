package history

import "errors"

// Common errors for history operations.
var (
	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrAborted indicates a transaction was aborted and not recorded.
	ErrAborted = errors.New("transaction aborted")

	// ErrUndoBudget indicates a transaction ran out of undo memory.
	ErrUndoBudget = errors.New("not enough undo memory")

	ErrNilAction      = errors.New("nil undo action")
	ErrNilTransaction = errors.New("nil transaction")

	// ErrBusy indicates an undo or redo is already running.
	ErrBusy = errors.New("undo or redo in progress")
)
