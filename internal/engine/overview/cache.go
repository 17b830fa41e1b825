package overview

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/wavestorm/internal/engine/feed"
	"github.com/dshills/wavestorm/internal/engine/selection"
)

// DefaultMaxRegions is the number of regions per track before they are
// collapsed into one spanning region.
const DefaultMaxRegions = 32

// Source is the part of a selection tracker a Cache depends on.
type Source interface {
	AllTracks() []selection.TrackID
	Offset() uint64
	Length() uint64
	Subscribe(observer feed.Observer[selection.Change]) *feed.Subscription[selection.Change]
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxRegions sets how many regions a track keeps before collapsing them.
func WithMaxRegions(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxRegions = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Cache tracks stale overview data per track.
type Cache struct {
	mu sync.RWMutex

	// tracks holds the followed tracks in selection order.
	tracks []selection.TrackID

	// regions holds the merged stale regions of each track, sorted by First.
	regions map[selection.TrackID][]Region

	// peaks holds the overview blocks of each track.
	peaks map[selection.TrackID][]Peak

	maxRegions int
	blockSize  uint64
	src        Source
	sub        *feed.Subscription[selection.Change]
	logger     *slog.Logger
}

// New creates a cache following src. Every track starts fully stale since
// nothing has been computed yet.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{
		regions:    make(map[selection.TrackID][]Region),
		peaks:      make(map[selection.TrackID][]Peak),
		maxRegions: DefaultMaxRegions,
		blockSize:  DefaultBlockSize,
		src:        src,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "overview"))

	for _, id := range src.AllTracks() {
		c.tracks = append(c.tracks, id)
		c.regions[id] = []Region{Whole()}
	}
	c.sub = src.Subscribe(c.handle)
	return c
}

// Close stops following the tracker. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (c *Cache) handle(ch selection.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch.Type {
	case selection.TrackAdded:
		if !slices.Contains(c.tracks, ch.Track) {
			c.tracks = append(c.tracks, ch.Track)
		}
		c.regions[ch.Track] = []Region{Whole()}
	case selection.TrackRemoved:
		c.tracks = slices.DeleteFunc(c.tracks, func(id selection.TrackID) bool { return id == ch.Track })
		delete(c.regions, ch.Track)
		delete(c.peaks, ch.Track)
	case selection.OffsetChanged, selection.LengthChanged:
		// Overview data is laid out relative to the window.
		for _, id := range c.tracks {
			c.regions[id] = []Region{Whole()}
		}
	case selection.Invalidated:
		r := NewRegion(ch.First, ch.Last)
		if ch.AllTracks() {
			for _, id := range c.tracks {
				c.markLocked(id, r)
			}
		} else if slices.Contains(c.tracks, ch.Track) {
			c.markLocked(ch.Track, r)
		}
	}
}

// markLocked adds r to the stale regions of id, merging where possible.
func (c *Cache) markLocked(id selection.TrackID, r Region) {
	regions := c.regions[id]
	if len(regions) == 1 && regions[0].IsWhole() {
		return
	}

	merged := r
	kept := regions[:0]
	for _, existing := range regions {
		if m, ok := merged.Merge(existing); ok {
			merged = m
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, merged)
	slices.SortFunc(kept, func(a, b Region) int { return cmp.Compare(a.First, b.First) })

	if len(kept) > c.maxRegions {
		// Too fragmented; recompute the whole span.
		span := Region{First: kept[0].First, Last: kept[0].Last}
		for _, k := range kept[1:] {
			span.Last = max(span.Last, k.Last)
		}
		c.logger.Debug("collapsed stale regions",
			slog.String("track", id.String()),
			slog.Int("regions", len(kept)))
		kept = []Region{span}
	}
	c.regions[id] = kept
}

// Tracks returns the followed tracks.
func (c *Cache) Tracks() []selection.TrackID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tracks)
}

// Dirty returns a copy of the stale regions of id, sorted by position.
func (c *Cache) Dirty(id selection.TrackID) []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.regions[id])
}

// IsDirty returns true if any track has stale data.
func (c *Cache) IsDirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, regions := range c.regions {
		if len(regions) > 0 {
			return true
		}
	}
	return false
}

// IsRangeDirty returns true if any sample in [first, last] of id is stale.
func (c *Cache) IsRangeDirty(id selection.TrackID, first, last uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query := NewRegion(first, last)
	for _, r := range c.regions[id] {
		if r.Overlaps(query) {
			return true
		}
	}
	return false
}

// Clean marks the data of id as recomputed.
func (c *Cache) Clean(id selection.TrackID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.regions[id]; ok {
		c.regions[id] = nil
	}
}

// Clear marks all data as recomputed.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.regions {
		c.regions[id] = nil
	}
}
