// Package history provides transactional undo/redo for the sample editor engine.
//
// Undo data is collected per user-visible edit into a Transaction. Key concepts:
//
// # Actions
//
// An Action is one reversible piece of undo data. It reports how much memory
// it holds (UndoSize) and how much its redo counterpart will need (RedoSize),
// describes itself, and reverses itself through Undo, which optionally returns
// the action that redoes what was just undone.
//
// # Handlers
//
// Stateful components that must be restored together with the samples
// implement Handler and register with a Manager:
//
//	mgr := history.NewManager(logger)
//	mgr.RegisterHandler(tracker)
//
// When a transaction starts, every handler is asked to append a snapshot:
//
//	tx := history.NewTransaction("Delete")
//	if err := mgr.StartTransaction(tx); err != nil {
//	    tx.Release() // no rollback is done for you
//	    return err
//	}
//	// ... mutate ...
//	mgr.CloseTransaction(tx)
//
// # History Stack
//
// History keeps committed transactions on bounded undo/redo stacks and wraps
// the start/commit protocol:
//
//	h := history.NewHistory(mgr, history.WithMaxEntries(100))
//	err := h.Edit("Fade In", func(tx *history.Transaction) error {
//	    return seq.WriteSamples(ids, 0, faded)
//	})
//	h.Undo()
//	h.Redo()
//
// Undo runs the actions of a transaction from last to first and appends each
// returned redo action to a new transaction. Redo runs that transaction from
// last to first as well, which replays the edits in their original order.
package history
