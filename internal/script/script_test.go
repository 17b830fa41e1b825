package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exampleScript = `
tracks:
  - name: left
    samples: {count: 1000, fill: 0}
  - name: right
    samples: {count: 1000, lua: "i % 7"}
selection:
  offset: 100
  length: 50
steps:
  - {op: insert, at: 80, samples: {count: 20, fill: 1}}
  - {op: delete, tracks: [left, right], at: 90, count: 30}
  - {op: modify, at: 95, samples: {values: [5, 5, 5]}}
  - {op: add-track, name: extra, samples: {values: [1, 2, 3]}}
  - {op: delete-track, name: extra}
  - {op: select, tracks: [right], offset: 10, length: 5, label: Reselect}
  - {op: undo}
  - {op: redo}
`

func TestParse(t *testing.T) {
	s, err := Parse(strings.NewReader(exampleScript))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(s.Tracks) != 2 || s.Tracks[1].Samples.Lua != "i % 7" {
		t.Errorf("Tracks = %+v", s.Tracks)
	}
	if s.Selection.Offset != 100 || s.Selection.Length != 50 {
		t.Errorf("Selection = %+v", s.Selection)
	}
	if len(s.Steps) != 8 {
		t.Fatalf("len(Steps) = %d, want 8", len(s.Steps))
	}
	if s.Steps[1].Op != OpDelete || s.Steps[1].Count != 30 || len(s.Steps[1].Tracks) != 2 {
		t.Errorf("Steps[1] = %+v", s.Steps[1])
	}
	if s.Steps[5].Label != "Reselect" {
		t.Errorf("Steps[5].Label = %q", s.Steps[5].Label)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"empty", ""},
		{"unnamed track", "tracks:\n  - samples: {values: [1]}\n"},
		{"duplicate track", "tracks:\n  - {name: a, samples: {values: [1]}}\n  - {name: a, samples: {values: [1]}}\n"},
		{"no samples", "tracks:\n  - {name: a}\n"},
		{"two sample kinds", "tracks:\n  - {name: a, samples: {values: [1], fill: 2}}\n"},
		{"fill without count", "tracks:\n  - {name: a, samples: {fill: 2}}\n"},
		{"unknown op", "steps:\n  - {op: shuffle}\n"},
		{"delete without count", "steps:\n  - {op: delete, at: 5}\n"},
		{"add-track without name", "steps:\n  - {op: add-track, samples: {values: [1]}}\n"},
		{"delete-track without name", "steps:\n  - {op: delete-track}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.script))
			if !errors.Is(err, ErrInvalidScript) {
				t.Errorf("expected ErrInvalidScript, got %v", err)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("tracks: []\nstepz: []\n"))
	if err == nil {
		t.Error("unknown field should be rejected")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.yaml")
	if err := os.WriteFile(path, []byte(exampleScript), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Steps) != 8 {
		t.Errorf("len(Steps) = %d, want 8", len(s.Steps))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing script should fail")
	}
}
