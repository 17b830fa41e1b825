package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/wavestorm/internal/config"
	"github.com/dshills/wavestorm/internal/engine/history"
	"github.com/dshills/wavestorm/internal/engine/overview"
	"github.com/dshills/wavestorm/internal/engine/selection"
	"github.com/dshills/wavestorm/internal/engine/sequence"
)

// Option configures a Runner.
type Option func(*Runner)

// WithSettings sets the limits applied to the history, tracker and cache.
func WithSettings(s config.Settings) Option {
	return func(r *Runner) {
		r.settings = s
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics makes the history report to m.
func WithMetrics(m *history.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// Runner replays scripts.
type Runner struct {
	settings config.Settings
	logger   *slog.Logger
	metrics  *history.Metrics
}

// NewRunner creates a runner with default settings.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		settings: config.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// session is the state of one replay.
type session struct {
	seq     *sequence.Sequence
	hist    *history.History
	tracker *selection.Tracker
	cache   *overview.Cache
	gen     *Generator

	ids   map[string]sequence.TrackID
	names map[sequence.TrackID]string
}

func (s *session) close() {
	s.cache.Close()
	s.tracker.Close()
	s.gen.Close()
}

// Run replays sc from an empty sequence and calls report after the setup
// and after every step. It stops at the first failing step.
func (r *Runner) Run(ctx context.Context, sc *Script, report func(Report)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := r.setup(ctx, sc)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.emit(Report{Op: "setup"}, report); err != nil {
		return err
	}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		desc, err := s.step(ctx, st)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
		r.logger.Debug("step done",
			slog.Int("step", i+1),
			slog.String("op", string(st.Op)),
			slog.String("description", desc))
		if err := s.emit(Report{Step: i + 1, Op: st.Op, Description: desc}, report); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) setup(ctx context.Context, sc *Script) (*session, error) {
	seq := sequence.New(sequence.WithLogger(r.logger))
	s := &session{
		seq: seq,
		hist: history.NewHistory(seq.UndoManager(),
			history.WithMaxEntries(r.settings.Undo.MaxEntries),
			history.WithMaxMemory(r.settings.Undo.MaxMemory),
			history.WithLogger(r.logger),
			history.WithMetrics(r.metrics)),
		gen:   NewGenerator(),
		ids:   make(map[string]sequence.TrackID),
		names: make(map[sequence.TrackID]string),
	}

	// Initial tracks are not undoable.
	for _, td := range sc.Tracks {
		samples, err := td.Samples.Resolve(ctx, s.gen)
		if err != nil {
			s.gen.Close()
			return nil, fmt.Errorf("track %q: %w", td.Name, err)
		}
		id, err := seq.AppendTrack(samples)
		if err != nil {
			s.gen.Close()
			return nil, fmt.Errorf("track %q: %w", td.Name, err)
		}
		s.name(td.Name, id)
	}

	tracks, err := s.lookup(sc.Selection.Tracks)
	if err != nil {
		s.gen.Close()
		return nil, fmt.Errorf("selection: %w", err)
	}
	s.tracker = selection.New(seq, sc.Selection.Offset, sc.Selection.Length, tracks,
		selection.WithLogger(r.logger),
		selection.WithConsistencyCheck(r.settings.Selection.ConsistencyCheck))
	s.cache = overview.New(s.tracker,
		overview.WithMaxRegions(r.settings.Overview.MaxRegions),
		overview.WithBlockSize(r.settings.Overview.BlockSize),
		overview.WithLogger(r.logger))
	return s, nil
}

func (s *session) name(name string, id sequence.TrackID) {
	s.ids[name] = id
	s.names[id] = name
}

// lookup resolves track names. An empty list resolves to nil.
func (s *session) lookup(names []string) ([]sequence.TrackID, error) {
	var ids []sequence.TrackID
	for _, n := range names {
		id, ok := s.ids[n]
		if !ok {
			return nil, fmt.Errorf("%q: %w", n, ErrUnknownTrack)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// targets resolves the tracks a sample edit applies to.
func (s *session) targets(names []string) ([]sequence.TrackID, error) {
	if len(names) == 0 {
		return s.seq.Tracks(), nil
	}
	return s.lookup(names)
}

// step runs one operation and returns its description.
func (s *session) step(ctx context.Context, st Step) (string, error) {
	switch st.Op {
	case OpUndo:
		info, ok := s.hist.PeekUndo()
		if !ok {
			return "", history.ErrNothingToUndo
		}
		return "Undo " + info.Description, s.hist.Undo()
	case OpRedo:
		info, ok := s.hist.PeekRedo()
		if !ok {
			return "", history.ErrNothingToRedo
		}
		return "Redo " + info.Description, s.hist.Redo()
	}

	edit, err := s.prepare(ctx, st)
	if err != nil {
		return "", err
	}
	if err := s.hist.Edit(st.Label, func(*history.Transaction) error { return edit() }); err != nil {
		return "", err
	}
	if info, ok := s.hist.PeekUndo(); ok {
		return info.Description, nil
	}
	return string(st.Op), nil
}

// prepare resolves names and samples up front so that nothing can fail
// between opening a transaction and mutating the sequence.
func (s *session) prepare(ctx context.Context, st Step) (func() error, error) {
	switch st.Op {
	case OpInsert, OpModify:
		ids, err := s.targets(st.Tracks)
		if err != nil {
			return nil, err
		}
		samples, err := st.Samples.Resolve(ctx, s.gen)
		if err != nil {
			return nil, err
		}
		if st.Op == OpInsert {
			return func() error { return s.seq.InsertSamples(ids, st.At, samples) }, nil
		}
		return func() error { return s.seq.WriteSamples(ids, st.At, samples) }, nil

	case OpDelete:
		ids, err := s.targets(st.Tracks)
		if err != nil {
			return nil, err
		}
		return func() error { return s.seq.DeleteSamples(ids, st.At, st.Count) }, nil

	case OpAddTrack:
		if _, ok := s.ids[st.Name]; ok {
			return nil, fmt.Errorf("track %q exists: %w", st.Name, ErrInvalidScript)
		}
		samples, err := st.Samples.Resolve(ctx, s.gen)
		if err != nil {
			return nil, err
		}
		index := s.seq.TrackCount()
		if st.Index != nil {
			index = *st.Index
		}
		return func() error {
			id, err := s.seq.InsertTrack(index, samples)
			if err != nil {
				return err
			}
			s.name(st.Name, id)
			return nil
		}, nil

	case OpDeleteTrack:
		ids, err := s.lookup([]string{st.Name})
		if err != nil {
			return nil, err
		}
		return func() error { return s.seq.DeleteTrack(ids[0]) }, nil

	case OpSelect:
		ids, err := s.lookup(st.Tracks)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			ids = s.seq.Tracks()
		}
		return func() error {
			s.tracker.SelectRange(ids, st.Offset, st.Length)
			return nil
		}, nil
	}
	return nil, fmt.Errorf("unknown op %q: %w", st.Op, ErrInvalidScript)
}

// emit reports the current state, then refreshes the overview so the next
// report only shows what the next step invalidates.
func (s *session) emit(rep Report, report func(Report)) error {
	rep.Offset = s.tracker.Offset()
	rep.Length = s.tracker.Length()
	rep.SelectionOnly = s.tracker.SelectionOnly()
	rep.SequenceLength = s.seq.Length()
	rep.UndoCount = s.hist.UndoCount()
	rep.RedoCount = s.hist.RedoCount()

	for _, id := range s.tracker.AllTracks() {
		rep.Tracks = append(rep.Tracks, s.label(id))
	}
	for _, id := range s.cache.Tracks() {
		if dirty := s.cache.Dirty(id); len(dirty) > 0 {
			rep.Dirty = append(rep.Dirty, TrackRegions{Track: s.label(id), Regions: dirty})
		}
	}

	if err := s.cache.Refresh(s.seq); err != nil {
		return fmt.Errorf("refresh overview: %w", err)
	}
	for _, id := range s.cache.Tracks() {
		rep.Peaks = append(rep.Peaks, TrackPeaks{Track: s.label(id), Peaks: s.cache.Peaks(id)})
	}

	if report != nil {
		report(rep)
	}
	return nil
}

func (s *session) label(id sequence.TrackID) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return id.String()
}
