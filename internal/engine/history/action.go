package history

// Action is a single reversible piece of undo data.
type Action interface {
	// UndoSize returns the memory held by this action, in bytes.
	UndoSize() uint64

	// RedoSize returns the memory the redo action will need, in bytes.
	RedoSize() uint64

	// Description returns a human-readable description of the action.
	Description() string

	// ContainsModification reports whether undoing changes sample data.
	ContainsModification() bool

	// Undo reverses the action. If withRedo is set it returns the action
	// that redoes the reversal; the returned action may be nil.
	Undo(withRedo bool) (Action, error)
}

// Releaser is implemented by actions that hold resources to drop when their
// transaction is released.
type Releaser interface {
	Release()
}

// Handler is a stateful component that contributes undo data whenever a
// transaction starts.
type Handler interface {
	// SaveUndoData appends a snapshot of the handler's state to tx.
	// A non-nil error aborts the start of the transaction.
	SaveUndoData(tx *Transaction) error
}
