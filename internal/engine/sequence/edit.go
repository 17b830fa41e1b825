package sequence

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// AppendTrack adds a track holding samples at the end of the sequence.
func (s *Sequence) AppendTrack(samples []Sample) (TrackID, error) {
	return s.InsertTrack(s.TrackCount(), samples)
}

// InsertTrack adds a track holding a copy of samples at index.
func (s *Sequence) InsertTrack(index int, samples []Sample) (TrackID, error) {
	id := uuid.New()
	if err := s.insertTrack(index, id, samples, true); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Sequence) insertTrack(index int, id TrackID, samples []Sample, record bool) error {
	s.mu.Lock()
	if index < 0 || index > len(s.tracks) {
		s.mu.Unlock()
		return fmt.Errorf("insert track at %d: %w", index, ErrOutOfRange)
	}
	if tx := s.recorder(record); tx != nil {
		if err := tx.Append(&trackInsertUndo{seq: s, id: id, length: uint64(len(samples))}); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	t := &track{id: id, samples: slices.Clone(samples)}
	s.tracks = slices.Insert(s.tracks, index, t)
	ev := Event{Type: TrackInserted, Track: id, Offset: uint64(index), Length: uint64(len(samples))}
	s.queueLocked([]Event{ev})
	s.mu.Unlock()

	s.feed.Flush()
	return nil
}

// DeleteTrack removes a track.
func (s *Sequence) DeleteTrack(id TrackID) error {
	_, _, err := s.deleteTrack(id, true)
	return err
}

func (s *Sequence) deleteTrack(id TrackID, record bool) (int, []Sample, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return -1, nil, fmt.Errorf("delete track %s: %w", id, ErrTrackNotFound)
	}
	t := s.tracks[i]
	if tx := s.recorder(record); tx != nil {
		if err := tx.Append(&trackDeleteUndo{seq: s, id: id, index: i, samples: t.samples}); err != nil {
			s.mu.Unlock()
			return -1, nil, err
		}
	}

	s.tracks = slices.Delete(s.tracks, i, i+1)
	ev := Event{Type: TrackDeleted, Track: id, Offset: uint64(i), Length: uint64(len(t.samples))}
	s.queueLocked([]Event{ev})
	s.mu.Unlock()

	s.feed.Flush()
	return i, t.samples, nil
}

// lookupLocked resolves ids and checks that [offset, offset+n) is valid in
// every track. With grow set, offset may equal the track length.
func (s *Sequence) lookupLocked(ids []TrackID, offset, n uint64, grow bool) ([]*track, error) {
	if len(ids) == 0 {
		return nil, ErrNoTracks
	}
	tracks := make([]*track, 0, len(ids))
	for _, id := range ids {
		i := s.indexLocked(id)
		if i < 0 {
			return nil, fmt.Errorf("track %s: %w", id, ErrTrackNotFound)
		}
		t := s.tracks[i]
		size := uint64(len(t.samples))
		if offset > size || (!grow && n > size-offset) {
			return nil, fmt.Errorf("track %s [%d,+%d) of %d: %w", id, offset, n, size, ErrOutOfRange)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// InsertSamples inserts a copy of samples at offset into every given track.
func (s *Sequence) InsertSamples(ids []TrackID, offset uint64, samples []Sample) error {
	return s.insertSamples(ids, offset, samples, true)
}

func (s *Sequence) insertSamples(ids []TrackID, offset uint64, samples []Sample, record bool) error {
	if len(samples) == 0 {
		return nil
	}
	n := uint64(len(samples))

	s.mu.Lock()
	tracks, err := s.lookupLocked(ids, offset, n, true)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("insert samples: %w", err)
	}
	if tx := s.recorder(record); tx != nil {
		for _, t := range tracks {
			if err := tx.Append(&insertUndo{seq: s, id: t.id, offset: offset, length: n}); err != nil {
				s.mu.Unlock()
				return err
			}
		}
	}

	events := make([]Event, 0, len(tracks))
	for _, t := range tracks {
		t.samples = slices.Insert(t.samples, int(offset), samples...)
		events = append(events, Event{Type: SamplesInserted, Track: t.id, Offset: offset, Length: n})
	}
	s.queueLocked(events)
	s.mu.Unlock()

	s.feed.Flush()
	return nil
}

// DeleteSamples removes n samples at offset from every given track.
func (s *Sequence) DeleteSamples(ids []TrackID, offset, n uint64) error {
	_, err := s.deleteSamples(ids, offset, n, true)
	return err
}

// deleteSamples returns the removed samples of each track.
func (s *Sequence) deleteSamples(ids []TrackID, offset, n uint64, record bool) ([][]Sample, error) {
	if n == 0 {
		return nil, nil
	}

	s.mu.Lock()
	tracks, err := s.lookupLocked(ids, offset, n, false)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("delete samples: %w", err)
	}

	removed := make([][]Sample, len(tracks))
	for i, t := range tracks {
		removed[i] = slices.Clone(t.samples[offset : offset+n])
	}
	if tx := s.recorder(record); tx != nil {
		for i, t := range tracks {
			if err := tx.Append(&deleteUndo{seq: s, id: t.id, offset: offset, samples: removed[i]}); err != nil {
				s.mu.Unlock()
				return nil, err
			}
		}
	}

	events := make([]Event, 0, len(tracks))
	for _, t := range tracks {
		t.samples = slices.Delete(t.samples, int(offset), int(offset+n))
		events = append(events, Event{Type: SamplesDeleted, Track: t.id, Offset: offset, Length: n})
	}
	s.queueLocked(events)
	s.mu.Unlock()

	s.feed.Flush()
	return removed, nil
}

// WriteSamples overwrites samples at offset in every given track.
// The written range must lie within each track.
func (s *Sequence) WriteSamples(ids []TrackID, offset uint64, samples []Sample) error {
	return s.writeSamples(ids, offset, samples, true)
}

func (s *Sequence) writeSamples(ids []TrackID, offset uint64, samples []Sample, record bool) error {
	if len(samples) == 0 {
		return nil
	}
	n := uint64(len(samples))

	s.mu.Lock()
	tracks, err := s.lookupLocked(ids, offset, n, false)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("write samples: %w", err)
	}
	if tx := s.recorder(record); tx != nil {
		for _, t := range tracks {
			old := slices.Clone(t.samples[offset : offset+n])
			if err := tx.Append(&modifyUndo{seq: s, id: t.id, offset: offset, samples: old}); err != nil {
				s.mu.Unlock()
				return err
			}
		}
	}

	events := make([]Event, 0, len(tracks))
	for _, t := range tracks {
		copy(t.samples[offset:], samples)
		events = append(events, Event{Type: SamplesModified, Track: t.id, Offset: offset, Length: n})
	}
	s.queueLocked(events)
	s.mu.Unlock()

	s.feed.Flush()
	return nil
}
