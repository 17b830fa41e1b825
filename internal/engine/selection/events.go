package selection

import (
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/dshills/wavestorm/internal/engine/sequence"
)

// handleEvent is the change feed observer. Changes are queued under the
// lock so that their delivery order matches the order of the state changes.
func (t *Tracker) handleEvent(ev sequence.Event) {
	t.mu.Lock()
	var out []Change
	if !t.inertLocked() && ev.Track != uuid.Nil {
		switch ev.Type {
		case sequence.TrackInserted:
			out = t.trackInsertedLocked(ev.Track)
		case sequence.TrackDeleted:
			out = t.trackDeletedLocked(ev.Track)
		case sequence.SamplesInserted:
			out = t.samplesInsertedLocked(ev)
		case sequence.SamplesDeleted:
			out = t.samplesDeletedLocked(ev)
		case sequence.SamplesModified:
			out = t.samplesModifiedLocked(ev)
		}
	}
	t.changes.Enqueue(out...)
	t.mu.Unlock()

	t.changes.Flush()
}

// memberLocked returns whether id is tracked and whether it is the
// reference track.
func (t *Tracker) memberLocked(id TrackID) (member, isFirst bool) {
	i := slices.Index(t.tracks, id)
	return i >= 0, i == 0
}

func (t *Tracker) trackInsertedLocked(id TrackID) []Change {
	// New tracks are never selected automatically.
	if t.selectionOnly || slices.Contains(t.tracks, id) {
		return nil
	}

	out := t.resyncLengthLocked(nil)
	t.tracks = append(t.tracks, id)
	return append(out, trackAdded(id))
}

func (t *Tracker) trackDeletedLocked(id TrackID) []Change {
	i := slices.Index(t.tracks, id)
	if i < 0 {
		return nil
	}

	var out []Change
	if !t.selectionOnly {
		out = t.resyncLengthLocked(out)
	}
	t.tracks = slices.Delete(t.tracks, i, i+1)
	return append(out, trackRemoved(id))
}

func (t *Tracker) samplesInsertedLocked(ev sequence.Event) []Change {
	member, isFirst := t.memberLocked(ev.Track)
	if !member || ev.Length == 0 {
		return nil
	}
	t.checkLocked(ev, isFirst)

	at, n := ev.Offset, ev.Length

	if !t.selectionOnly {
		out := t.resyncLengthLocked(nil)
		return append(out, invalidated(ev.Track, t.offset, ToEnd))
	}

	if at >= t.offset+t.length {
		return nil
	}

	var out []Change
	if at < t.offset {
		// Content before the window only moves it.
		if isFirst {
			t.offset += n
			out = append(out, offsetChanged(t.offset))
		}
		return out
	}

	if isFirst {
		t.length += n
		out = append(out, lengthChanged(t.length))
	}
	return append(out, invalidated(ev.Track, t.offset, ToEnd))
}

func (t *Tracker) samplesDeletedLocked(ev sequence.Event) []Change {
	member, isFirst := t.memberLocked(ev.Track)
	if !member || ev.Length == 0 {
		return nil
	}
	t.checkLocked(ev, isFirst)

	at, n := ev.Offset, ev.Length
	lastDeleted := at + n - 1

	if !t.selectionOnly {
		out := t.resyncLengthLocked(nil)
		return append(out, invalidated(ev.Track, max(at, t.offset), ToEnd))
	}

	end := t.offset + t.length
	if at >= end {
		return nil
	}

	var out []Change
	if lastDeleted < t.offset {
		if isFirst {
			t.offset -= n
			out = append(out, offsetChanged(t.offset))
		}
		return out
	}

	var shift uint64
	if t.offset > at {
		shift = t.offset - at
	}
	left := max(at, t.offset)
	right := min(lastDeleted, end-1)
	var deleted uint64
	if right >= left {
		deleted = right - left + 1
	}

	if isFirst && shift > 0 {
		t.offset -= shift
		left = t.offset
		out = append(out, offsetChanged(t.offset))
	}
	if isFirst && deleted > 0 {
		t.length -= deleted
		out = append(out, lengthChanged(t.length))
	}
	return append(out, invalidated(ev.Track, left, ToEnd))
}

func (t *Tracker) samplesModifiedLocked(ev sequence.Event) []Change {
	member, _ := t.memberLocked(ev.Track)
	if !member || ev.Length == 0 {
		return nil
	}

	at := ev.Offset
	lastModified := at + ev.Length - 1
	end := t.offset + t.length
	if at >= end || lastModified < t.offset {
		return nil
	}

	// Modification does not move content, so the invalidation is bounded.
	return []Change{invalidated(ev.Track, max(at, t.offset), min(lastModified, end-1))}
}

// checkLocked compares a structural event with the reference track's last
// event of the same kind.
func (t *Tracker) checkLocked(ev sequence.Event, isFirst bool) {
	if !t.checkConsistency {
		return
	}
	if isFirst {
		t.lastRef[ev.Type] = refEvent{valid: true, offset: ev.Offset, length: ev.Length}
		return
	}
	ref := t.lastRef[ev.Type]
	if ref.valid && (ref.offset != ev.Offset || ref.length != ev.Length) {
		t.logger.Warn("multitrack edit reported inconsistent ranges",
			slog.String("type", ev.Type.String()),
			slog.String("track", ev.Track.String()),
			slog.Uint64("offset", ev.Offset),
			slog.Uint64("length", ev.Length),
			slog.Uint64("reference_offset", ref.offset),
			slog.Uint64("reference_length", ref.length))
	}
}
