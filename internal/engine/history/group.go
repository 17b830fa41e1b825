package history

// Scope provides a convenient way to bracket an edit using defer.
// Usage:
//
//	func doComplexEdit(h *History) error {
//	    scope, err := h.Scope("Complex Edit")
//	    if err != nil {
//	        return err
//	    }
//	    defer scope.End()
//	    // ... multiple edits ...
//	}
type Scope struct {
	history *History
	tx      *Transaction
	active  bool
	err     error
}

// Scope begins a transaction and returns a scope for it.
func (h *History) Scope(name string) (*Scope, error) {
	tx, err := h.Begin(name)
	if err != nil {
		return nil, err
	}
	return &Scope{
		history: h,
		tx:      tx,
		active:  true,
	}, nil
}

// Transaction returns the transaction collecting the scope's undo data.
func (s *Scope) Transaction() *Transaction {
	return s.tx
}

// End commits the scope's transaction.
// Safe to call multiple times; only the first call has effect.
func (s *Scope) End() error {
	if s.active {
		s.err = s.history.Commit(s.tx)
		s.active = false
	}
	return s.err
}

// Cancel discards the transaction without recording it.
// Note: Edits already applied still affect the sequence.
func (s *Scope) Cancel() {
	if s.active {
		s.history.Discard(s.tx)
		s.active = false
	}
}

// Edit runs fn within a transaction named name.
// If fn returns an error the transaction is discarded and the error returned.
// If fn aborted the transaction, ErrAborted is returned.
func (h *History) Edit(name string, fn func(tx *Transaction) error) error {
	tx, err := h.Begin(name)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		h.Discard(tx)
		return err
	}

	return h.Commit(tx)
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes all transactions since the checkpoint.
func (h *History) UndoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes transactions up to the checkpoint depth.
// Note: This only works if the redo stack has the transactions.
func (h *History) RedoToCheckpoint(cp Checkpoint) error {
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		if err := h.Redo(); err != nil {
			return err
		}
	}
	return nil
}
