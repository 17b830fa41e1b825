package selection

import (
	"math"

	"github.com/google/uuid"
)

// ToEnd is the Last value of an invalidation that reaches to the end of data.
const ToEnd uint64 = math.MaxUint64

// ChangeType categorizes tracker notifications.
type ChangeType uint8

const (
	// TrackAdded indicates Track joined the tracked set.
	TrackAdded ChangeType = iota

	// TrackRemoved indicates Track left the tracked set.
	TrackRemoved

	// OffsetChanged indicates the tracked offset is now Offset.
	OffsetChanged

	// LengthChanged indicates the tracked length is now Length.
	LengthChanged

	// Invalidated indicates derived data for [First, Last] is stale.
	Invalidated
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case TrackAdded:
		return "track-added"
	case TrackRemoved:
		return "track-removed"
	case OffsetChanged:
		return "offset-changed"
	case LengthChanged:
		return "length-changed"
	case Invalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Change is a tracker notification.
type Change struct {
	Type ChangeType

	// Track is the affected track. For Invalidated, uuid.Nil means all
	// tracked tracks.
	Track uuid.UUID

	// Offset is set for OffsetChanged.
	Offset uint64

	// Length is set for LengthChanged.
	Length uint64

	// First and Last bound an invalidation, inclusive. Last may be ToEnd.
	First uint64
	Last  uint64
}

// AllTracks reports whether an invalidation applies to every tracked track.
func (c Change) AllTracks() bool {
	return c.Track == uuid.Nil
}

func trackAdded(id uuid.UUID) Change   { return Change{Type: TrackAdded, Track: id} }
func trackRemoved(id uuid.UUID) Change { return Change{Type: TrackRemoved, Track: id} }
func offsetChanged(o uint64) Change    { return Change{Type: OffsetChanged, Offset: o} }
func lengthChanged(n uint64) Change    { return Change{Type: LengthChanged, Length: n} }

func invalidated(id uuid.UUID, first, last uint64) Change {
	return Change{Type: Invalidated, Track: id, First: first, Last: last}
}

// lastOf returns the last sample of [offset, offset+length), or offset for
// an empty range.
func lastOf(offset, length uint64) uint64 {
	if length == 0 {
		return offset
	}
	return offset + length - 1
}
