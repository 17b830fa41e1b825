package sequence

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/wavestorm/internal/engine/feed"
	"github.com/dshills/wavestorm/internal/engine/history"
)

// TrackID identifies a track for its whole lifetime.
type TrackID = uuid.UUID

// Sample is a single audio sample.
type Sample int32

// sampleBytes is the memory one sample occupies.
const sampleBytes = 4

// EventType categorizes change feed events.
type EventType uint8

const (
	// TrackInserted reports a new track; Offset is its index, Length its samples.
	TrackInserted EventType = iota

	// TrackDeleted reports a removed track; Offset is its former index.
	TrackDeleted

	// SamplesInserted reports Length samples inserted at Offset.
	SamplesInserted

	// SamplesDeleted reports Length samples deleted at Offset.
	SamplesDeleted

	// SamplesModified reports Length samples overwritten at Offset.
	SamplesModified
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case TrackInserted:
		return "track-inserted"
	case TrackDeleted:
		return "track-deleted"
	case SamplesInserted:
		return "samples-inserted"
	case SamplesDeleted:
		return "samples-deleted"
	case SamplesModified:
		return "samples-modified"
	default:
		return "unknown"
	}
}

// Event is a single change feed notification.
type Event struct {
	Type   EventType
	Track  TrackID
	Offset uint64
	Length uint64
}

type track struct {
	id      TrackID
	samples []Sample
}

// Option configures a Sequence.
type Option func(*Sequence)

// WithUndoManager makes the sequence record its edits into transactions
// started on m.
func WithUndoManager(m *history.Manager) Option {
	return func(s *Sequence) {
		if m != nil {
			s.undo = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequence) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sequence is a multitrack sample sequence with a change feed.
// All methods are thread-safe. Events are queued while the lock is held, so
// they are delivered in mutation order even when edits run concurrently or
// an observer edits the sequence; an edit made during a delivery returns
// before its events have been delivered.
type Sequence struct {
	mu     sync.RWMutex
	tracks []*track

	feed   feed.Feed[Event]
	undo   *history.Manager
	logger *slog.Logger
}

// New creates an empty sequence.
func New(opts ...Option) *Sequence {
	s := &Sequence{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.undo == nil {
		s.undo = history.NewManager(s.logger)
	}
	s.logger = s.logger.With(slog.String("component", "sequence"))
	return s
}

// UndoManager returns the handler registry edits are recorded with.
func (s *Sequence) UndoManager() *history.Manager {
	return s.undo
}

// Subscribe registers an observer for change feed events.
func (s *Sequence) Subscribe(observer feed.Observer[Event]) *feed.Subscription[Event] {
	return s.feed.Subscribe(observer)
}

// Length returns the length of the longest track.
func (s *Sequence) Length() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lengthLocked()
}

func (s *Sequence) lengthLocked() uint64 {
	var n uint64
	for _, t := range s.tracks {
		n = max(n, uint64(len(t.samples)))
	}
	return n
}

// Tracks returns the track ids in order.
func (s *Sequence) Tracks() []TrackID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]TrackID, len(s.tracks))
	for i, t := range s.tracks {
		ids[i] = t.id
	}
	return ids
}

// TrackCount returns the number of tracks.
func (s *Sequence) TrackCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Contains reports whether a track with the given id exists.
func (s *Sequence) Contains(id TrackID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) >= 0
}

// IndexOf returns the position of a track, or -1.
func (s *Sequence) IndexOf(id TrackID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id)
}

func (s *Sequence) indexLocked(id TrackID) int {
	for i, t := range s.tracks {
		if t.id == id {
			return i
		}
	}
	return -1
}

// TrackLength returns the number of samples in a track.
func (s *Sequence) TrackLength(id TrackID) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return 0, false
	}
	return uint64(len(s.tracks[i].samples)), true
}

// ReadSamples returns a copy of n samples of a track starting at offset.
func (s *Sequence) ReadSamples(id TrackID, offset, n uint64) ([]Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("read %s: %w", id, ErrTrackNotFound)
	}
	t := s.tracks[i]
	if offset > uint64(len(t.samples)) || n > uint64(len(t.samples))-offset {
		return nil, fmt.Errorf("read [%d,+%d): %w", offset, n, ErrOutOfRange)
	}
	out := make([]Sample, n)
	copy(out, t.samples[offset:offset+n])
	return out, nil
}

// recorder returns the transaction edits are recorded into, or nil.
func (s *Sequence) recorder(record bool) *history.Transaction {
	if !record {
		return nil
	}
	return s.undo.Active()
}

// queueLocked queues events for delivery in mutation order. The caller
// flushes the feed once the lock has been released.
func (s *Sequence) queueLocked(events []Event) {
	for _, ev := range events {
		s.logger.Debug("change",
			slog.String("type", ev.Type.String()),
			slog.String("track", ev.Track.String()),
			slog.Uint64("offset", ev.Offset),
			slog.Uint64("length", ev.Length))
	}
	s.feed.Enqueue(events...)
}
