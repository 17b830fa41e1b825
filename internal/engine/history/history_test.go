package history

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// cell is a tiny piece of undoable state.
type cell struct {
	value int
}

// setAction restores cell to old when undone.
type setAction struct {
	c        *cell
	old      int
	desc     string
	size     uint64
	modifies bool
	released *[]string
}

func (a *setAction) UndoSize() uint64           { return a.size }
func (a *setAction) RedoSize() uint64           { return a.size }
func (a *setAction) Description() string        { return a.desc }
func (a *setAction) ContainsModification() bool { return a.modifies }

func (a *setAction) Undo(withRedo bool) (Action, error) {
	var redo Action
	if withRedo {
		redo = &setAction{c: a.c, old: a.c.value, desc: a.desc, size: a.size, modifies: a.modifies}
	}
	a.c.value = a.old
	return redo, nil
}

func (a *setAction) Release() {
	if a.released != nil {
		*a.released = append(*a.released, a.desc)
	}
}

type failingAction struct{ setAction }

func (a *failingAction) Undo(bool) (Action, error) {
	return nil, errors.New("boom")
}

// flakyAction fails the first fails undo attempts.
type flakyAction struct {
	setAction
	fails int
}

func (a *flakyAction) Undo(withRedo bool) (Action, error) {
	if a.fails > 0 {
		a.fails--
		return nil, errors.New("boom")
	}
	return a.setAction.Undo(withRedo)
}

// stackAction records a push of v onto s, or a pop of v when pushed is false.
type stackAction struct {
	s      *[]int
	v      int
	pushed bool
}

func (a *stackAction) UndoSize() uint64           { return 8 }
func (a *stackAction) RedoSize() uint64           { return 8 }
func (a *stackAction) Description() string        { return "stack" }
func (a *stackAction) ContainsModification() bool { return true }

func (a *stackAction) Undo(withRedo bool) (Action, error) {
	if a.pushed {
		n := len(*a.s)
		if n == 0 || (*a.s)[n-1] != a.v {
			return nil, fmt.Errorf("top of %v is not %d", *a.s, a.v)
		}
		*a.s = (*a.s)[:n-1]
	} else {
		*a.s = append(*a.s, a.v)
	}
	if !withRedo {
		return nil, nil
	}
	return &stackAction{s: a.s, v: a.v, pushed: !a.pushed}, nil
}

// cellHandler snapshots its cell when a transaction starts.
type cellHandler struct {
	c     *cell
	name  string
	fail  bool
	calls *[]string
}

func (h *cellHandler) SaveUndoData(tx *Transaction) error {
	if h.calls != nil {
		*h.calls = append(*h.calls, h.name)
	}
	if h.fail {
		return ErrUndoBudget
	}
	return tx.Append(&setAction{c: h.c, old: h.c.value, desc: h.name, size: 8})
}

// Transaction Tests

func TestTransactionDescription(t *testing.T) {
	tests := []struct {
		name  string
		txn   string
		descs []string
		want  string
	}{
		{"explicit name", "Cut", []string{"a", "b"}, "Cut"},
		{"empty", "", nil, ""},
		{"single", "", []string{"Fade In"}, "Fade In"},
		{"adjacent duplicate", "", []string{"Fade In", "Fade In"}, "Fade In"},
		{"distinct", "", []string{"Delete", "Selection"}, "Delete, Selection"},
		{"non-adjacent duplicate", "", []string{"A", "B", "A"}, "A, B, A"},
		{"run of duplicates", "", []string{"A", "A", "A", "B"}, "A, B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewTransaction(tt.txn)
			for _, d := range tt.descs {
				if err := tx.Append(&setAction{c: &cell{}, desc: d}); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			if got := tx.Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransactionSizes(t *testing.T) {
	tx := NewTransaction("")
	_ = tx.Append(&setAction{c: &cell{}, size: 10})
	_ = tx.Append(&setAction{c: &cell{}, size: 32})

	if got := tx.UndoSize(); got != 42 {
		t.Errorf("UndoSize() = %d, want 42", got)
	}
	if got := tx.RedoSize(); got != 42 {
		t.Errorf("RedoSize() = %d, want 42", got)
	}
}

func TestTransactionContainsModification(t *testing.T) {
	tx := NewTransaction("")
	if tx.ContainsModification() {
		t.Error("empty transaction should not contain modification")
	}

	_ = tx.Append(&setAction{c: &cell{}})
	if tx.ContainsModification() {
		t.Error("should not contain modification")
	}

	_ = tx.Append(&setAction{c: &cell{}, modifies: true})
	if !tx.ContainsModification() {
		t.Error("should contain modification")
	}
}

func TestTransactionAbort(t *testing.T) {
	tx := NewTransaction("x")
	if tx.IsAborted() {
		t.Error("new transaction should not be aborted")
	}
	tx.Abort()
	if !tx.IsAborted() {
		t.Error("should be aborted")
	}
}

func TestTransactionReleaseOrder(t *testing.T) {
	var released []string
	tx := NewTransaction("")
	for _, d := range []string{"first", "second", "third"} {
		_ = tx.Append(&setAction{c: &cell{}, desc: d, released: &released})
	}

	tx.Release()

	want := []string{"third", "second", "first"}
	if len(released) != len(want) {
		t.Fatalf("released %v, want %v", released, want)
	}
	for i := range want {
		if released[i] != want[i] {
			t.Errorf("released[%d] = %q, want %q", i, released[i], want[i])
		}
	}
	if !tx.IsEmpty() {
		t.Error("transaction should be empty after Release")
	}
}

func TestTransactionBudget(t *testing.T) {
	tx := NewTransaction("", WithBudget(16))

	if err := tx.Append(&setAction{c: &cell{}, size: 10}); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	err := tx.Append(&setAction{c: &cell{}, size: 10})
	if !errors.Is(err, ErrUndoBudget) {
		t.Errorf("expected ErrUndoBudget, got %v", err)
	}
	if tx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tx.Len())
	}
}

func TestTransactionNilAction(t *testing.T) {
	tx := NewTransaction("")
	if err := tx.Append(nil); !errors.Is(err, ErrNilAction) {
		t.Errorf("expected ErrNilAction, got %v", err)
	}
}

// Manager Tests

func TestManagerRegister(t *testing.T) {
	m := NewManager(nil)
	h := &cellHandler{c: &cell{}}

	if m.RegisterHandler(nil) {
		t.Error("nil handler should not register")
	}
	if !m.RegisterHandler(h) {
		t.Error("first registration should succeed")
	}
	if m.RegisterHandler(h) {
		t.Error("duplicate registration should fail")
	}
	if m.Handlers() != 1 {
		t.Errorf("Handlers() = %d, want 1", m.Handlers())
	}
	if !m.UnregisterHandler(h) {
		t.Error("unregister should succeed")
	}
	if m.UnregisterHandler(h) {
		t.Error("second unregister should fail")
	}
}

func TestManagerStartOrder(t *testing.T) {
	m := NewManager(nil)
	var calls []string
	m.RegisterHandler(&cellHandler{c: &cell{}, name: "a", calls: &calls})
	m.RegisterHandler(&cellHandler{c: &cell{}, name: "b", calls: &calls})

	tx := NewTransaction("")
	if err := m.StartTransaction(tx); err != nil {
		t.Fatalf("StartTransaction: %v", err)
	}

	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("calls = %v, want [a b]", calls)
	}
	if tx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tx.Len())
	}
	if m.Active() != tx {
		t.Error("started transaction should be active")
	}
	if err := m.CloseTransaction(tx); err != nil {
		t.Errorf("CloseTransaction: %v", err)
	}
	if m.Active() != nil {
		t.Error("closed transaction should not be active")
	}
}

func TestManagerStartFailureKeepsEarlierActions(t *testing.T) {
	m := NewManager(nil)
	var calls []string
	m.RegisterHandler(&cellHandler{c: &cell{}, name: "a", calls: &calls})
	m.RegisterHandler(&cellHandler{c: &cell{}, name: "b", fail: true, calls: &calls})
	m.RegisterHandler(&cellHandler{c: &cell{}, name: "c", calls: &calls})

	tx := NewTransaction("")
	err := m.StartTransaction(tx)
	if !errors.Is(err, ErrUndoBudget) {
		t.Fatalf("expected ErrUndoBudget, got %v", err)
	}
	if tx.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (no rollback)", tx.Len())
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, third handler must not run", calls)
	}
	if m.Active() != nil {
		t.Error("failed transaction should not be active")
	}
}

func TestManagerStartNil(t *testing.T) {
	m := NewManager(nil)
	if err := m.StartTransaction(nil); !errors.Is(err, ErrNilTransaction) {
		t.Errorf("expected ErrNilTransaction, got %v", err)
	}
}

// History Tests

func newTestHistory(opts ...Option) (*History, *cell) {
	c := &cell{}
	m := NewManager(nil)
	m.RegisterHandler(&cellHandler{c: c, name: "Set"})
	return NewHistory(m, opts...), c
}

func setValue(h *History, c *cell, v int) error {
	return h.Edit("", func(tx *Transaction) error {
		c.value = v
		return nil
	})
}

func TestHistoryUndoRedo(t *testing.T) {
	h, c := newTestHistory()

	if err := setValue(h, c, 1); err != nil {
		t.Fatal(err)
	}
	if err := setValue(h, c, 2); err != nil {
		t.Fatal(err)
	}

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", h.UndoCount())
	}

	if err := h.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 1 {
		t.Errorf("after undo value = %d, want 1", c.value)
	}
	if err := h.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 0 {
		t.Errorf("after second undo value = %d, want 0", c.value)
	}
	if err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}

	if err := h.Redo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 1 {
		t.Errorf("after redo value = %d, want 1", c.value)
	}
	if err := h.Redo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 2 {
		t.Errorf("after second redo value = %d, want 2", c.value)
	}
	if err := h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestHistoryCommitClearsRedo(t *testing.T) {
	h, c := newTestHistory()

	_ = setValue(h, c, 1)
	_ = h.Undo()
	if !h.CanRedo() {
		t.Fatal("expected redo")
	}

	_ = setValue(h, c, 5)
	if h.CanRedo() {
		t.Error("commit should clear redo stack")
	}
}

func TestHistoryEditError(t *testing.T) {
	h, c := newTestHistory()

	wantErr := errors.New("edit failed")
	err := h.Edit("Broken", func(tx *Transaction) error {
		c.value = 9
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected edit error, got %v", err)
	}
	if h.CanUndo() {
		t.Error("failed edit should not be recorded")
	}
	if h.Manager().Active() != nil {
		t.Error("failed edit should not stay active")
	}
}

func TestHistoryAborted(t *testing.T) {
	h, _ := newTestHistory()

	err := h.Edit("Aborted", func(tx *Transaction) error {
		tx.Abort()
		return nil
	})

	if !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
	if h.CanUndo() {
		t.Error("aborted transaction should not be recorded")
	}
}

func TestHistoryBeginFailure(t *testing.T) {
	m := NewManager(nil)
	m.RegisterHandler(&cellHandler{c: &cell{}, fail: true})
	h := NewHistory(m)

	if _, err := h.Begin("x"); !errors.Is(err, ErrUndoBudget) {
		t.Errorf("expected ErrUndoBudget, got %v", err)
	}
	if m.Active() != nil {
		t.Error("no transaction should be active")
	}
}

func TestHistoryEmptyTransactionDropped(t *testing.T) {
	h := NewHistory(NewManager(nil))

	if err := h.Edit("Nothing", func(*Transaction) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if h.CanUndo() {
		t.Error("empty transaction should not be recorded")
	}
}

func TestHistoryMaxEntries(t *testing.T) {
	h, c := newTestHistory(WithMaxEntries(3))

	for i := 1; i <= 5; i++ {
		_ = setValue(h, c, i)
	}

	if h.UndoCount() != 3 {
		t.Errorf("UndoCount() = %d, want 3", h.UndoCount())
	}
	for h.CanUndo() {
		_ = h.Undo()
	}
	if c.value != 2 {
		t.Errorf("oldest reachable value = %d, want 2", c.value)
	}
}

func TestHistoryMaxMemory(t *testing.T) {
	// Each transaction holds one 8 byte snapshot.
	h, c := newTestHistory(WithMaxMemory(20))

	for i := 1; i <= 4; i++ {
		_ = setValue(h, c, i)
	}

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", h.UndoCount())
	}
	if h.Memory() > 20 {
		t.Errorf("Memory() = %d, exceeds limit", h.Memory())
	}
}

func TestHistorySetLimits(t *testing.T) {
	h, c := newTestHistory()
	for i := 1; i <= 5; i++ {
		_ = setValue(h, c, i)
	}

	h.SetLimits(2, 0)

	if h.UndoCount() != 2 {
		t.Errorf("UndoCount() = %d, want 2", h.UndoCount())
	}
	if h.MaxEntries() != 2 {
		t.Errorf("MaxEntries() = %d, want 2", h.MaxEntries())
	}
}

func TestHistoryUndoFailureRestoresEntry(t *testing.T) {
	h := NewHistory(NewManager(nil))

	tx, err := h.Begin("Fail")
	if err != nil {
		t.Fatal(err)
	}
	_ = tx.Append(&failingAction{setAction{c: &cell{}, desc: "fail"}})
	if err := h.Commit(tx); err != nil {
		t.Fatal(err)
	}

	if err := h.Undo(); err == nil {
		t.Fatal("expected undo error")
	}
	if h.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", h.UndoCount())
	}
	if h.CanRedo() {
		t.Error("failed undo must not produce redo")
	}
}

func TestHistoryUndoFailureRollsBack(t *testing.T) {
	h := NewHistory(NewManager(nil))
	a, f, b := &cell{}, &cell{}, &cell{}

	err := h.Edit("Three", func(tx *Transaction) error {
		_ = tx.Append(&setAction{c: a, desc: "a"})
		_ = tx.Append(&flakyAction{setAction: setAction{c: f, desc: "f"}, fails: 1})
		_ = tx.Append(&setAction{c: b, desc: "b"})
		a.value, f.value, b.value = 1, 1, 1
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Undo(); err == nil {
		t.Fatal("expected undo error")
	}
	if a.value != 1 || f.value != 1 || b.value != 1 {
		t.Errorf("after failed undo: a=%d f=%d b=%d, want 1 1 1", a.value, f.value, b.value)
	}
	if h.UndoCount() != 1 || h.CanRedo() {
		t.Fatalf("UndoCount() = %d, CanRedo() = %v", h.UndoCount(), h.CanRedo())
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("second Undo: %v", err)
	}
	if a.value != 0 || f.value != 0 || b.value != 0 {
		t.Errorf("after undo: a=%d f=%d b=%d, want 0 0 0", a.value, f.value, b.value)
	}

	if err := h.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if a.value != 1 || f.value != 1 || b.value != 1 {
		t.Errorf("after redo: a=%d f=%d b=%d, want 1 1 1", a.value, f.value, b.value)
	}
}

func TestHistoryRedoKeepsActionOrder(t *testing.T) {
	h := NewHistory(NewManager(nil))
	var s []int

	err := h.Edit("Push", func(tx *Transaction) error {
		for _, v := range []int{1, 2, 3} {
			s = append(s, v)
			if err := tx.Append(&stackAction{s: &s, v: v, pushed: true}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for round := 0; round < 2; round++ {
		if err := h.Undo(); err != nil {
			t.Fatalf("round %d: Undo: %v", round, err)
		}
		if len(s) != 0 {
			t.Errorf("round %d: after undo s = %v, want empty", round, s)
		}
		if err := h.Redo(); err != nil {
			t.Fatalf("round %d: Redo: %v", round, err)
		}
		if !slices.Equal(s, []int{1, 2, 3}) {
			t.Errorf("round %d: after redo s = %v, want [1 2 3]", round, s)
		}
	}
}

func TestHistoryInfo(t *testing.T) {
	h, c := newTestHistory()

	_ = h.Edit("First", func(*Transaction) error { c.value = 1; return nil })
	_ = h.Edit("Second", func(*Transaction) error { c.value = 2; return nil })

	info := h.UndoInfo()
	if len(info) != 2 || info[0].Description != "First" || info[1].Description != "Second" {
		t.Errorf("UndoInfo() = %+v", info)
	}

	peek, ok := h.PeekUndo()
	if !ok || peek.Description != "Second" {
		t.Errorf("PeekUndo() = %+v, %v", peek, ok)
	}

	_ = h.Undo()
	peek, ok = h.PeekRedo()
	if !ok || peek.Description != "Second" {
		t.Errorf("PeekRedo() = %+v, %v", peek, ok)
	}
	if len(h.RedoInfo()) != 1 {
		t.Errorf("RedoInfo() length = %d, want 1", len(h.RedoInfo()))
	}
}

func TestHistoryClear(t *testing.T) {
	h, c := newTestHistory()
	_ = setValue(h, c, 1)
	_ = setValue(h, c, 2)
	_ = h.Undo()

	h.Clear()

	if h.CanUndo() || h.CanRedo() {
		t.Error("history should be empty after Clear")
	}
}

func TestScope(t *testing.T) {
	h, c := newTestHistory()

	scope, err := h.Scope("Scoped")
	if err != nil {
		t.Fatal(err)
	}
	c.value = 7
	if err := scope.End(); err != nil {
		t.Fatal(err)
	}
	if err := scope.End(); err != nil {
		t.Errorf("second End: %v", err)
	}

	if h.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", h.UndoCount())
	}

	scope, _ = h.Scope("Cancelled")
	scope.Cancel()
	scope.Cancel()
	if h.UndoCount() != 1 {
		t.Errorf("cancelled scope should not be recorded")
	}
}

func TestCheckpoint(t *testing.T) {
	h, c := newTestHistory()

	_ = setValue(h, c, 1)
	cp := h.CreateCheckpoint()
	_ = setValue(h, c, 2)
	_ = setValue(h, c, 3)

	if err := h.UndoToCheckpoint(cp); err != nil {
		t.Fatal(err)
	}
	if c.value != 1 {
		t.Errorf("value = %d, want 1", c.value)
	}

	end := Checkpoint{undoDepth: 3}
	if err := h.RedoToCheckpoint(end); err != nil {
		t.Fatal(err)
	}
	if c.value != 3 {
		t.Errorf("value = %d, want 3", c.value)
	}
}
