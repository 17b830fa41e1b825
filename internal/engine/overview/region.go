// Package overview maintains per-track waveform overviews of a selection.
//
// A Cache follows a selection.Tracker and records which sample ranges of
// which tracks are stale, merging adjacent and overlapping ranges as they
// arrive. Refresh recomputes only the overview blocks that touch a stale
// range; each block holds the minimum, maximum and RMS of its samples.
package overview

import "github.com/dshills/wavestorm/internal/engine/selection"

// ToEnd marks a region that reaches to the end of the data.
const ToEnd = selection.ToEnd

// Region is an inclusive range of sample positions.
type Region struct {
	// First is the first stale sample.
	First uint64

	// Last is the last stale sample, or ToEnd.
	Last uint64
}

// NewRegion creates a region covering first through last, in either order.
func NewRegion(first, last uint64) Region {
	if last < first {
		first, last = last, first
	}
	return Region{First: first, Last: last}
}

// Whole returns the region covering all samples.
func Whole() Region {
	return Region{First: 0, Last: ToEnd}
}

// IsEmpty returns true if the region covers no samples.
func (r Region) IsEmpty() bool {
	return r.First > r.Last
}

// IsWhole returns true if the region covers every sample.
func (r Region) IsWhole() bool {
	return r.First == 0 && r.Last == ToEnd
}

// Contains returns true if the region covers the given sample.
func (r Region) Contains(sample uint64) bool {
	return sample >= r.First && sample <= r.Last
}

// Overlaps returns true if two regions share a sample.
func (r Region) Overlaps(other Region) bool {
	return r.First <= other.Last && other.First <= r.Last
}

// Adjacent returns true if one region starts right after the other ends.
func (r Region) Adjacent(other Region) bool {
	// Guard against overflow at ToEnd
	return (r.Last < ToEnd && r.Last+1 == other.First) ||
		(other.Last < ToEnd && other.Last+1 == r.First)
}

// Merge combines two regions into one that covers both.
// Returns false if they neither overlap nor touch.
func (r Region) Merge(other Region) (Region, bool) {
	if !r.Overlaps(other) && !r.Adjacent(other) {
		return Region{}, false
	}
	return Region{First: min(r.First, other.First), Last: max(r.Last, other.Last)}, true
}

// Intersect returns the shared part of two regions, which is empty if
// they don't overlap.
func (r Region) Intersect(other Region) Region {
	if !r.Overlaps(other) {
		return Region{First: 1, Last: 0}
	}
	return Region{First: max(r.First, other.First), Last: min(r.Last, other.Last)}
}
