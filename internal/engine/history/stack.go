package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxEntries is the default number of undo transactions kept.
const DefaultMaxEntries = 1000

// undoEntry wraps a transaction with metadata.
type undoEntry struct {
	tx        *Transaction
	timestamp time.Time
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries sets the maximum number of undo transactions.
func WithMaxEntries(max int) Option {
	return func(h *History) {
		if max > 0 {
			h.maxEntries = max
		}
	}
}

// WithMaxMemory sets the maximum undo memory in bytes. Zero means unlimited.
func WithMaxMemory(bytes uint64) Option {
	return func(h *History) {
		h.maxMemory = bytes
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// History keeps committed transactions on undo/redo stacks.
type History struct {
	mu sync.Mutex

	manager   *Manager
	undoStack []*undoEntry
	redoStack []*undoEntry
	busy      bool

	// Configuration
	maxEntries int
	maxMemory  uint64
	logger     *slog.Logger
	metrics    *Metrics
}

// NewHistory creates a history on top of a handler registry.
func NewHistory(manager *Manager, opts ...Option) *History {
	h := &History{
		manager:    manager,
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.manager == nil {
		h.manager = NewManager(h.logger)
	}
	h.logger = h.logger.With(slog.String("component", "history"))
	return h
}

// Manager returns the handler registry.
func (h *History) Manager() *Manager {
	return h.manager
}

// Begin opens a transaction and collects the handlers' undo data.
// On failure the partially filled transaction is released.
func (h *History) Begin(name string) (*Transaction, error) {
	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return nil, ErrBusy
	}
	budget := h.maxMemory
	h.mu.Unlock()

	tx := NewTransaction(name, WithBudget(budget))
	if err := h.manager.StartTransaction(tx); err != nil {
		tx.Release()
		h.metrics.fail("start")
		return nil, err
	}
	return tx, nil
}

// Commit closes tx and pushes it onto the undo stack, clearing the redo
// stack. Aborted transactions are released and ErrAborted is returned;
// empty transactions are dropped silently.
func (h *History) Commit(tx *Transaction) error {
	if tx == nil {
		return ErrNilTransaction
	}
	_ = h.manager.CloseTransaction(tx)

	if tx.IsAborted() {
		tx.Release()
		return ErrAborted
	}
	if tx.IsEmpty() {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.pushLocked(tx)
	h.releaseAll(h.redoStack)
	h.redoStack = nil
	h.enforceLimitsLocked()
	h.metrics.commit()
	h.observeLocked()
	return nil
}

// Discard closes and releases tx without recording it.
// Edits already applied still affect the sequence.
func (h *History) Discard(tx *Transaction) {
	if tx == nil {
		return
	}
	_ = h.manager.CloseTransaction(tx)
	tx.Release()
}

// pushLocked adds a transaction without acquiring the lock.
func (h *History) pushLocked(tx *Transaction) {
	h.undoStack = append(h.undoStack, &undoEntry{
		tx:        tx,
		timestamp: time.Now(),
	})
}

// enforceLimitsLocked drops the oldest entries beyond the configured limits.
func (h *History) enforceLimitsLocked() {
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.releaseAll(h.undoStack[:excess])
		h.undoStack = h.undoStack[excess:]
		for range excess {
			h.metrics.drop()
		}
	}

	if h.maxMemory == 0 {
		return
	}
	for h.memoryLocked() > h.maxMemory {
		switch {
		case len(h.undoStack) > 1:
			h.undoStack[0].tx.Release()
			h.undoStack = h.undoStack[1:]
		case len(h.redoStack) > 0:
			h.redoStack[0].tx.Release()
			h.redoStack = h.redoStack[1:]
		default:
			// The newest transaction always stays.
			return
		}
		h.metrics.drop()
		h.logger.Debug("dropped oldest undo entry", slog.Uint64("limit", h.maxMemory))
	}
}

func (h *History) observeLocked() {
	if h.metrics != nil {
		h.metrics.observe(len(h.undoStack), len(h.redoStack), h.memoryLocked())
	}
}

func (h *History) memoryLocked() uint64 {
	var total uint64
	for _, e := range h.undoStack {
		total += e.tx.UndoSize()
	}
	for _, e := range h.redoStack {
		total += e.tx.UndoSize()
	}
	return total
}

func (h *History) releaseAll(entries []*undoEntry) {
	for _, e := range entries {
		e.tx.Release()
	}
}

// Undo reverts the most recent transaction and makes it available for redo.
// The lock is released while the actions run, since they call back into
// the sequence and its handlers.
func (h *History) Undo() error {
	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return ErrBusy
	}
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}

	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.busy = true
	h.mu.Unlock()

	reverse, err := h.revert(entry.tx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.busy = false

	if err != nil {
		// revert rolled the entry back to its full state
		h.undoStack = append(h.undoStack, entry)
		h.metrics.fail("undo")
		return fmt.Errorf("undo %q: %w", entry.tx.Description(), err)
	}

	h.redoStack = append(h.redoStack, &undoEntry{tx: reverse, timestamp: time.Now()})
	h.enforceLimitsLocked()
	h.metrics.revert("undo")
	h.observeLocked()
	return nil
}

// Redo re-applies the most recently undone transaction.
func (h *History) Redo() error {
	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return ErrBusy
	}
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}

	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.busy = true
	h.mu.Unlock()

	reverse, err := h.revert(entry.tx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.busy = false

	if err != nil {
		h.redoStack = append(h.redoStack, entry)
		h.metrics.fail("redo")
		return fmt.Errorf("redo %q: %w", entry.tx.Description(), err)
	}

	h.undoStack = append(h.undoStack, &undoEntry{tx: reverse, timestamp: time.Now()})
	h.enforceLimitsLocked()
	h.metrics.revert("redo")
	h.observeLocked()
	return nil
}

// revert runs the actions of tx from last to first. Every returned action
// is appended to the reverse transaction, so reverting that one replays
// the original actions in their original order.
//
// If an action fails, the actions already reverted are re-applied so that
// tx again matches the current state, and tx keeps every action.
func (h *History) revert(tx *Transaction) (*Transaction, error) {
	reverse := NewTransaction(tx.Description())

	for !tx.IsEmpty() {
		action := tx.takeLast()
		inverse, err := action.Undo(true)
		if err != nil {
			tx.restore(action)
			h.rollback(tx, reverse)
			return nil, err
		}
		release(action, inverse)
		if inverse != nil {
			reverse.restore(inverse)
		}
	}

	h.logger.Debug("reverted transaction",
		slog.String("description", reverse.Description()),
		slog.Int("actions", reverse.Len()))
	return reverse, nil
}

// rollback reverts the partial reverse transaction of a failed revert and
// appends the results to tx. If that fails too, the remaining actions are
// lost and tx no longer describes the full edit.
func (h *History) rollback(tx, reverse *Transaction) {
	for !reverse.IsEmpty() {
		inverse := reverse.takeLast()
		redo, err := inverse.Undo(true)
		if err != nil {
			h.logger.Error("rollback of failed revert failed",
				slog.String("description", tx.Description()),
				slog.Int("lost", reverse.Len()+1),
				slog.Any("error", err))
			release(inverse, nil)
			reverse.Release()
			return
		}
		release(inverse, redo)
		if redo != nil {
			tx.restore(redo)
		}
	}
}

// release drops a reverted action unless it was reused as its own inverse.
func release(action, inverse Action) {
	if inverse == action {
		return
	}
	if r, ok := action.(Releaser); ok {
		r.Release()
	}
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo transactions available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo transactions available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Memory returns the undo memory currently held by both stacks.
func (h *History) Memory() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.memoryLocked()
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.releaseAll(h.undoStack)
	h.releaseAll(h.redoStack)
	h.undoStack = nil
	h.redoStack = nil
	h.observeLocked()
}

// EntryInfo provides read-only info about a stacked transaction.
type EntryInfo struct {
	Description string    // Human-readable description
	Timestamp   time.Time // When the entry was pushed
	UndoSize    uint64    // Memory held, in bytes
	Modifies    bool      // Whether reverting changes sample data
}

func infoOf(e *undoEntry) EntryInfo {
	return EntryInfo{
		Description: e.tx.Description(),
		Timestamp:   e.timestamp,
		UndoSize:    e.tx.UndoSize(),
		Modifies:    e.tx.ContainsModification(),
	}
}

// UndoInfo returns info about available undo transactions, oldest first.
func (h *History) UndoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]EntryInfo, len(h.undoStack))
	for i, e := range h.undoStack {
		result[i] = infoOf(e)
	}
	return result
}

// RedoInfo returns info about available redo transactions.
func (h *History) RedoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]EntryInfo, len(h.redoStack))
	for i, e := range h.redoStack {
		result[i] = infoOf(e)
	}
	return result
}

// PeekUndo returns info about the next undo transaction without removing it.
func (h *History) PeekUndo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return EntryInfo{}, false
	}
	return infoOf(h.undoStack[len(h.undoStack)-1]), true
}

// PeekRedo returns info about the next redo transaction without removing it.
func (h *History) PeekRedo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return EntryInfo{}, false
	}
	return infoOf(h.redoStack[len(h.redoStack)-1]), true
}

// SetLimits changes the entry and memory limits.
// If the stacks are larger, oldest entries are removed.
func (h *History) SetLimits(maxEntries int, maxMemory uint64) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxEntries = maxEntries
	h.maxMemory = maxMemory
	h.enforceLimitsLocked()
	h.observeLocked()
}

// MaxEntries returns the maximum number of undo entries.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
