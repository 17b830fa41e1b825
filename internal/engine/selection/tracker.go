package selection

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/wavestorm/internal/engine/feed"
	"github.com/dshills/wavestorm/internal/engine/history"
	"github.com/dshills/wavestorm/internal/engine/sequence"
)

// TrackID identifies a track of the sequence.
type TrackID = sequence.TrackID

// Source is the part of a sequence a Tracker depends on.
type Source interface {
	Tracks() []TrackID
	Contains(id TrackID) bool
	Length() uint64
	Subscribe(observer feed.Observer[sequence.Event]) *feed.Subscription[sequence.Event]
	UndoManager() *history.Manager
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithConsistencyCheck makes the tracker compare the structural events of
// non-reference tracks against the reference track's last event of the
// same kind and log a warning on mismatch.
func WithConsistencyCheck(enabled bool) Option {
	return func(t *Tracker) {
		t.checkConsistency = enabled
	}
}

// refEvent remembers the reference track's last structural edit.
type refEvent struct {
	valid  bool
	offset uint64
	length uint64
}

// Tracker keeps a selected range and track set in sync with a sequence.
type Tracker struct {
	mu sync.Mutex

	source        Source
	tracks        []TrackID
	offset        uint64
	length        uint64
	selectionOnly bool
	closed        bool

	changes feed.Feed[Change]
	sub     *feed.Subscription[sequence.Event]

	checkConsistency bool
	lastRef          map[sequence.EventType]refEvent
	logger           *slog.Logger
}

// New creates a tracker over src. A non-zero length selects selection mode;
// zero mirrors the whole sequence. Without tracks all current tracks of src
// are adopted, in sequence order. A nil src yields an inert tracker.
func New(src Source, offset, length uint64, tracks []TrackID, opts ...Option) *Tracker {
	t := &Tracker{
		selectionOnly: length != 0,
		lastRef:       make(map[sequence.EventType]refEvent),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(slog.String("component", "selection"))

	if src == nil {
		t.logger.Warn("no sequence given, selection tracker is inert")
		return t
	}
	t.source = src

	if len(tracks) == 0 {
		tracks = src.Tracks()
	}
	t.tracks = t.existing(tracks)

	if t.selectionOnly {
		t.offset = offset
		t.length = length
	} else {
		t.length = src.Length()
	}

	t.sub = src.Subscribe(t.handleEvent)
	src.UndoManager().RegisterHandler(t)
	return t
}

// existing returns ids that exist in the source, without duplicates,
// keeping their order.
func (t *Tracker) existing(ids []TrackID) []TrackID {
	result := make([]TrackID, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(result, id) || !t.source.Contains(id) {
			continue
		}
		result = append(result, id)
	}
	return result
}

// Close stops tracking and drops the undo registration.
// Snapshots taken earlier become no-ops. Safe to call multiple times.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	sub := t.sub
	t.sub = nil
	src := t.source
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if src != nil {
		src.UndoManager().UnregisterHandler(t)
	}
	t.changes.Close()
}

// Subscribe registers an observer for tracker notifications.
func (t *Tracker) Subscribe(observer feed.Observer[Change]) *feed.Subscription[Change] {
	return t.changes.Subscribe(observer)
}

// inertLocked reports whether the tracker ignores all input.
func (t *Tracker) inertLocked() bool {
	return t.source == nil || t.closed
}

// AllTracks returns a copy of the tracked ids; the first is the reference track.
func (t *Tracker) AllTracks() []TrackID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tracks)
}

// Offset returns the first tracked sample.
func (t *Tracker) Offset() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}

// Length returns the number of tracked samples.
func (t *Tracker) Length() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.length
}

// First returns the first tracked sample.
func (t *Tracker) First() uint64 {
	return t.Offset()
}

// Last returns the last tracked sample, or the offset if the range is empty.
func (t *Tracker) Last() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lastOf(t.offset, t.length)
}

// SelectionOnly reports whether the tracker follows a sub-range rather than
// the whole sequence.
func (t *Tracker) SelectionOnly() bool {
	return t.selectionOnly
}

// SelectRange reconciles the tracker with the given tracks and range. It is
// used for user re-selection and by undo/redo. In whole-sequence mode offset
// and length are ignored and the length is resynchronized instead.
func (t *Tracker) SelectRange(tracks []TrackID, offset, length uint64) {
	t.mu.Lock()
	if !t.inertLocked() {
		t.changes.Enqueue(t.selectRangeLocked(tracks, offset, length)...)
	}
	t.mu.Unlock()

	t.changes.Flush()
}

func (t *Tracker) selectRangeLocked(tracks []TrackID, offset, length uint64) []Change {
	var out []Change
	wanted := t.existing(tracks)

	for _, id := range slices.Clone(t.tracks) {
		if !slices.Contains(wanted, id) {
			t.tracks = slices.DeleteFunc(t.tracks, func(x TrackID) bool { return x == id })
			out = append(out, trackRemoved(id))
		}
	}
	for _, id := range wanted {
		if !slices.Contains(t.tracks, id) {
			t.tracks = append(t.tracks, id)
			out = append(out, trackAdded(id))
		}
	}
	// Membership now equals wanted; adopt its order so the reference
	// track is the requested one.
	t.tracks = wanted

	if !t.selectionOnly {
		return t.resyncLengthLocked(out)
	}

	if length == 0 || (offset == t.offset && length == t.length) {
		return out
	}

	oldOffset, oldLength := t.offset, t.length
	if length != oldLength {
		t.length = length
		out = append(out, lengthChanged(length))
	}

	switch {
	case offset != oldOffset:
		t.offset = offset
		out = append(out, offsetChanged(offset))
		out = append(out, invalidated(TrackID{}, offset, ToEnd))
	case length > oldLength:
		out = append(out, invalidated(TrackID{}, lastOf(oldOffset, oldLength), ToEnd))
	case length < oldLength:
		out = append(out, invalidated(TrackID{}, lastOf(offset, length), ToEnd))
	}
	return out
}

// resyncLengthLocked makes the length follow the sequence length.
func (t *Tracker) resyncLengthLocked(out []Change) []Change {
	n := t.source.Length()
	if n != t.length {
		t.length = n
		out = append(out, lengthChanged(n))
	}
	return out
}

// SaveUndoData implements history.Handler. Only selection mode contributes;
// the whole-sequence state is derived from the sequence itself.
func (t *Tracker) SaveUndoData(tx *history.Transaction) error {
	snap := t.snapshot()
	if snap == nil || !snap.selectionOnly {
		return nil
	}
	if err := tx.Append(snap); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// String returns a short description of the tracked state.
func (t *Tracker) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("[%d, %d] length %d on %d tracks",
		t.offset, lastOf(t.offset, t.length), t.length, len(t.tracks))
}
