package selection

import (
	"slices"
	"weak"

	"github.com/dshills/wavestorm/internal/engine/history"
)

// rangeUndo restores a tracker's tracks, offset and length.
type rangeUndo struct {
	tracker       weak.Pointer[Tracker]
	tracks        []TrackID
	offset        uint64
	length        uint64
	selectionOnly bool
}

// snapshot captures the current state, or returns nil for an inert tracker.
func (t *Tracker) snapshot() *rangeUndo {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inertLocked() {
		return nil
	}
	return &rangeUndo{
		tracker:       weak.Make(t),
		tracks:        slices.Clone(t.tracks),
		offset:        t.offset,
		length:        t.length,
		selectionOnly: t.selectionOnly,
	}
}

// snapshotOverhead approximates the fixed memory of a snapshot.
const snapshotOverhead = 64

func (u *rangeUndo) UndoSize() uint64 {
	return snapshotOverhead + uint64(len(u.tracks)*len(TrackID{}))
}

func (u *rangeUndo) RedoSize() uint64           { return u.UndoSize() }
func (u *rangeUndo) Description() string        { return "Selection" }
func (u *rangeUndo) ContainsModification() bool { return false }

// Undo replays SelectRange with the saved state. The redo action holds the
// state right before the replay. If the tracker is gone or closed it does
// nothing and returns no redo action.
func (u *rangeUndo) Undo(withRedo bool) (history.Action, error) {
	t := u.tracker.Value()
	if t == nil {
		return nil, nil
	}

	var redo history.Action
	if withRedo {
		if snap := t.snapshot(); snap != nil {
			redo = snap
		}
	}
	t.SelectRange(u.tracks, u.offset, u.length)
	return redo, nil
}
