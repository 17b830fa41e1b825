package sequence

import (
	"github.com/dshills/wavestorm/internal/engine/history"
)

// actionOverhead approximates the bookkeeping memory of one undo action.
const actionOverhead = 64

func samplesSize(n uint64) uint64 {
	return n * sampleBytes
}

// insertUndo removes samples that were inserted.
type insertUndo struct {
	seq    *Sequence
	id     TrackID
	offset uint64
	length uint64
}

func (u *insertUndo) UndoSize() uint64           { return actionOverhead }
func (u *insertUndo) RedoSize() uint64           { return actionOverhead + samplesSize(u.length) }
func (u *insertUndo) Description() string        { return "Insert" }
func (u *insertUndo) ContainsModification() bool { return true }

func (u *insertUndo) Undo(withRedo bool) (history.Action, error) {
	removed, err := u.seq.deleteSamples([]TrackID{u.id}, u.offset, u.length, false)
	if err != nil {
		return nil, err
	}
	if !withRedo {
		return nil, nil
	}
	return &deleteUndo{seq: u.seq, id: u.id, offset: u.offset, samples: removed[0]}, nil
}

// deleteUndo re-inserts samples that were deleted.
type deleteUndo struct {
	seq     *Sequence
	id      TrackID
	offset  uint64
	samples []Sample
}

func (u *deleteUndo) UndoSize() uint64 {
	return actionOverhead + samplesSize(uint64(len(u.samples)))
}
func (u *deleteUndo) RedoSize() uint64           { return actionOverhead }
func (u *deleteUndo) Description() string        { return "Delete" }
func (u *deleteUndo) ContainsModification() bool { return true }
func (u *deleteUndo) Release()                   { u.samples = nil }

func (u *deleteUndo) Undo(withRedo bool) (history.Action, error) {
	n := uint64(len(u.samples))
	if err := u.seq.insertSamples([]TrackID{u.id}, u.offset, u.samples, false); err != nil {
		return nil, err
	}
	if !withRedo {
		return nil, nil
	}
	return &insertUndo{seq: u.seq, id: u.id, offset: u.offset, length: n}, nil
}

// modifyUndo writes back samples that were overwritten.
type modifyUndo struct {
	seq     *Sequence
	id      TrackID
	offset  uint64
	samples []Sample
}

func (u *modifyUndo) UndoSize() uint64 {
	return actionOverhead + samplesSize(uint64(len(u.samples)))
}
func (u *modifyUndo) RedoSize() uint64           { return u.UndoSize() }
func (u *modifyUndo) Description() string        { return "Modify" }
func (u *modifyUndo) ContainsModification() bool { return true }
func (u *modifyUndo) Release()                   { u.samples = nil }

func (u *modifyUndo) Undo(withRedo bool) (history.Action, error) {
	var current []Sample
	if withRedo {
		var err error
		current, err = u.seq.ReadSamples(u.id, u.offset, uint64(len(u.samples)))
		if err != nil {
			return nil, err
		}
	}
	if err := u.seq.writeSamples([]TrackID{u.id}, u.offset, u.samples, false); err != nil {
		return nil, err
	}
	if !withRedo {
		return nil, nil
	}
	return &modifyUndo{seq: u.seq, id: u.id, offset: u.offset, samples: current}, nil
}

// trackInsertUndo removes a track that was inserted.
type trackInsertUndo struct {
	seq    *Sequence
	id     TrackID
	length uint64
}

func (u *trackInsertUndo) UndoSize() uint64           { return actionOverhead }
func (u *trackInsertUndo) RedoSize() uint64           { return actionOverhead + samplesSize(u.length) }
func (u *trackInsertUndo) Description() string        { return "Insert Track" }
func (u *trackInsertUndo) ContainsModification() bool { return true }

func (u *trackInsertUndo) Undo(withRedo bool) (history.Action, error) {
	index, samples, err := u.seq.deleteTrack(u.id, false)
	if err != nil {
		return nil, err
	}
	if !withRedo {
		return nil, nil
	}
	return &trackDeleteUndo{seq: u.seq, id: u.id, index: index, samples: samples}, nil
}

// trackDeleteUndo re-creates a deleted track under its original id.
type trackDeleteUndo struct {
	seq     *Sequence
	id      TrackID
	index   int
	samples []Sample
}

func (u *trackDeleteUndo) UndoSize() uint64 {
	return actionOverhead + samplesSize(uint64(len(u.samples)))
}
func (u *trackDeleteUndo) RedoSize() uint64           { return actionOverhead }
func (u *trackDeleteUndo) Description() string        { return "Delete Track" }
func (u *trackDeleteUndo) ContainsModification() bool { return true }
func (u *trackDeleteUndo) Release()                   { u.samples = nil }

func (u *trackDeleteUndo) Undo(withRedo bool) (history.Action, error) {
	n := uint64(len(u.samples))
	if err := u.seq.insertTrack(u.index, u.id, u.samples, false); err != nil {
		return nil, err
	}
	if !withRedo {
		return nil, nil
	}
	return &trackInsertUndo{seq: u.seq, id: u.id, length: n}, nil
}
