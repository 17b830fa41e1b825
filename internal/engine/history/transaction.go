package history

import (
	"fmt"
	"strings"
	"time"
)

// TransactionOption configures a Transaction.
type TransactionOption func(*Transaction)

// WithBudget limits the undo memory a transaction may hold, in bytes.
// Zero means unlimited.
func WithBudget(bytes uint64) TransactionOption {
	return func(t *Transaction) {
		t.budget = bytes
	}
}

// Transaction is an ordered group of actions forming one undoable edit.
// A Transaction is not safe for concurrent use; edits are expected to be
// serialized by the caller.
type Transaction struct {
	name      string
	actions   []Action
	aborted   bool
	budget    uint64
	undoBytes uint64
	started   time.Time
}

// NewTransaction creates an empty transaction. An empty name makes
// Description derive the text from the actions.
func NewTransaction(name string, opts ...TransactionOption) *Transaction {
	t := &Transaction{
		name:    name,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append adds an action at the end of the transaction.
// Returns ErrUndoBudget if the action does not fit into the budget.
func (t *Transaction) Append(a Action) error {
	if a == nil {
		return ErrNilAction
	}
	if err := t.reserve(a); err != nil {
		return err
	}
	t.actions = append(t.actions, a)
	return nil
}

func (t *Transaction) reserve(a Action) error {
	size := a.UndoSize()
	if t.budget > 0 && t.undoBytes+size > t.budget {
		return fmt.Errorf("%w: %q needs %d bytes, %d of %d in use",
			ErrUndoBudget, a.Description(), size, t.undoBytes, t.budget)
	}
	t.undoBytes += size
	return nil
}

// Len returns the number of actions.
func (t *Transaction) Len() int {
	return len(t.actions)
}

// IsEmpty returns true if the transaction holds no actions.
func (t *Transaction) IsEmpty() bool {
	return len(t.actions) == 0
}

// Actions returns a copy of the actions in append order.
func (t *Transaction) Actions() []Action {
	result := make([]Action, len(t.actions))
	copy(result, t.actions)
	return result
}

// Name returns the explicit name given at creation.
func (t *Transaction) Name() string {
	return t.name
}

// Started returns when the transaction was created.
func (t *Transaction) Started() time.Time {
	return t.started
}

// UndoSize returns the summed undo size of all actions.
func (t *Transaction) UndoSize() uint64 {
	var total uint64
	for _, a := range t.actions {
		total += a.UndoSize()
	}
	return total
}

// RedoSize returns the summed redo size of all actions.
func (t *Transaction) RedoSize() uint64 {
	var total uint64
	for _, a := range t.actions {
		total += a.RedoSize()
	}
	return total
}

// Description returns the explicit name if one was given, otherwise the
// action descriptions joined with ", ". An action whose description equals
// that of the action right before it is listed only once.
func (t *Transaction) Description() string {
	if t.name != "" {
		return t.name
	}

	var b strings.Builder
	last := ""
	for i, a := range t.actions {
		d := a.Description()
		if i > 0 && d == last {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d)
		last = d
	}
	return b.String()
}

// ContainsModification returns true if any action modifies sample data.
func (t *Transaction) ContainsModification() bool {
	for _, a := range t.actions {
		if a.ContainsModification() {
			return true
		}
	}
	return false
}

// Abort marks the transaction as abandoned. Aborted transactions must not
// be committed to the history.
func (t *Transaction) Abort() {
	t.aborted = true
}

// IsAborted reports whether Abort was called.
func (t *Transaction) IsAborted() bool {
	return t.aborted
}

// Release drops all actions, last appended first.
func (t *Transaction) Release() {
	for i := len(t.actions) - 1; i >= 0; i-- {
		if r, ok := t.actions[i].(Releaser); ok {
			r.Release()
		}
		t.actions[i] = nil
	}
	t.actions = nil
	t.undoBytes = 0
}

// restore appends a without checking the budget. It is used when actions
// move between transactions during undo and redo.
func (t *Transaction) restore(a Action) {
	t.actions = append(t.actions, a)
	t.undoBytes += a.UndoSize()
}

// takeLast removes and returns the last action.
func (t *Transaction) takeLast() Action {
	n := len(t.actions)
	if n == 0 {
		return nil
	}
	a := t.actions[n-1]
	t.actions[n-1] = nil
	t.actions = t.actions[:n-1]
	t.undoBytes -= min(t.undoBytes, a.UndoSize())
	return a
}
