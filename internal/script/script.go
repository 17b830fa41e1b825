// Package script replays edit scripts against a sequence.
//
// A script is a YAML document declaring the initial tracks, the selection
// to follow and a list of steps. Each edit step runs as one undoable
// transaction; undo and redo steps walk the history. After every step the
// runner reports the tracked selection and the overview regions the step
// invalidated.
//
//	tracks:
//	  - name: left
//	    samples: {count: 1000, lua: "math.floor(math.sin(i / 20) * 8000)"}
//	  - name: right
//	    samples: {count: 1000, fill: 0}
//	selection: {offset: 100, length: 50}
//	steps:
//	  - {op: insert, at: 80, samples: {count: 20, fill: 1}}
//	  - {op: delete, at: 90, count: 30}
//	  - {op: undo}
package script

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Op names a step operation.
type Op string

// Supported operations.
const (
	OpInsert      Op = "insert"
	OpDelete      Op = "delete"
	OpModify      Op = "modify"
	OpAddTrack    Op = "add-track"
	OpDeleteTrack Op = "delete-track"
	OpSelect      Op = "select"
	OpUndo        Op = "undo"
	OpRedo        Op = "redo"
)

// Script is a decoded edit script.
type Script struct {
	Tracks    []TrackDef   `yaml:"tracks"`
	Selection SelectionDef `yaml:"selection"`
	Steps     []Step       `yaml:"steps"`
}

// TrackDef declares an initial track.
type TrackDef struct {
	Name    string     `yaml:"name"`
	Samples SampleSpec `yaml:"samples"`
}

// SelectionDef declares the tracked selection. A zero length follows the
// whole sequence; no tracks means all tracks.
type SelectionDef struct {
	Tracks []string `yaml:"tracks"`
	Offset uint64   `yaml:"offset"`
	Length uint64   `yaml:"length"`
}

// Step is one scripted operation.
type Step struct {
	Op Op `yaml:"op"`

	// Label names the undo transaction. Defaults to the action descriptions.
	Label string `yaml:"label"`

	// Tracks lists the affected tracks by name; empty means all tracks.
	Tracks []string `yaml:"tracks"`

	At      uint64     `yaml:"at"`
	Count   uint64     `yaml:"count"`
	Samples SampleSpec `yaml:"samples"`

	// Name and Index apply to add-track and delete-track.
	Name  string `yaml:"name"`
	Index *int   `yaml:"index"`

	// Offset and Length apply to select.
	Offset uint64 `yaml:"offset"`
	Length uint64 `yaml:"length"`
}

// Load reads and validates the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty script: %w", ErrInvalidScript)
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names and step shapes without touching any data.
func (s *Script) Validate() error {
	names := make(map[string]bool)
	for i, td := range s.Tracks {
		if td.Name == "" {
			return fmt.Errorf("track %d has no name: %w", i, ErrInvalidScript)
		}
		if names[td.Name] {
			return fmt.Errorf("duplicate track %q: %w", td.Name, ErrInvalidScript)
		}
		names[td.Name] = true
		if err := td.Samples.validate(); err != nil {
			return fmt.Errorf("track %q: %w", td.Name, err)
		}
	}

	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Op {
	case OpInsert, OpModify:
		return st.Samples.validate()
	case OpDelete:
		if st.Count == 0 {
			return fmt.Errorf("delete needs a count: %w", ErrInvalidScript)
		}
	case OpAddTrack:
		if st.Name == "" {
			return fmt.Errorf("add-track needs a name: %w", ErrInvalidScript)
		}
		return st.Samples.validate()
	case OpDeleteTrack:
		if st.Name == "" {
			return fmt.Errorf("delete-track needs a name: %w", ErrInvalidScript)
		}
	case OpSelect, OpUndo, OpRedo:
	default:
		return fmt.Errorf("unknown op %q: %w", st.Op, ErrInvalidScript)
	}
	return nil
}
