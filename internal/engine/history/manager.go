package history

import (
	"fmt"
	"log/slog"
	"sync"
)

// Manager is the registry of undo handlers for one sequence.
// Starting a transaction asks every registered handler for its undo data.
type Manager struct {
	mu sync.Mutex

	handlers []Handler
	active   *Transaction
	logger   *slog.Logger
}

// NewManager creates an empty handler registry.
// A nil logger falls back to slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With(slog.String("component", "undo_manager")),
	}
}

// RegisterHandler adds h to the registry.
// Returns false if h is nil or already registered.
func (m *Manager) RegisterHandler(h Handler) bool {
	if h == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.handlers {
		if existing == h {
			return false
		}
	}
	m.handlers = append(m.handlers, h)
	return true
}

// UnregisterHandler removes h from the registry.
// Returns false if h was not registered.
func (m *Manager) UnregisterHandler(h Handler) bool {
	if h == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.handlers {
		if existing == h {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Handlers returns the number of registered handlers.
func (m *Manager) Handlers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// StartTransaction asks every handler, in registration order, to save its
// undo data into tx. The first failure is returned immediately; actions
// already appended by earlier handlers stay in tx and the caller is
// responsible for discarding it.
func (m *Manager) StartTransaction(tx *Transaction) error {
	if tx == nil {
		return ErrNilTransaction
	}

	// Handlers may register or unregister while saving.
	m.mu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for i, h := range handlers {
		if err := h.SaveUndoData(tx); err != nil {
			m.logger.Warn("undo data not saved",
				slog.Int("handler", i),
				slog.String("transaction", tx.Description()),
				slog.Any("error", err))
			return fmt.Errorf("start transaction: %w", err)
		}
	}

	m.mu.Lock()
	m.active = tx
	m.mu.Unlock()
	return nil
}

// CloseTransaction ends the bookkeeping for tx. It always succeeds.
func (m *Manager) CloseTransaction(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == tx {
		m.active = nil
	}
	return nil
}

// Active returns the transaction between a successful StartTransaction and
// its CloseTransaction, or nil.
func (m *Manager) Active() *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
