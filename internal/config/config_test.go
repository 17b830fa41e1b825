package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()

	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if s.Undo.MaxEntries != 1000 {
		t.Errorf("Undo.MaxEntries = %d, want 1000", s.Undo.MaxEntries)
	}
	if s.Undo.MaxMemory != 0 {
		t.Errorf("Undo.MaxMemory = %d, want unlimited", s.Undo.MaxMemory)
	}
	if s.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", s.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	path := writeSettings(t, `
[undo]
max_entries = 50
max_memory = 4096

[selection]
consistency_check = true

[logging]
level = "debug"
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Undo.MaxEntries != 50 || s.Undo.MaxMemory != 4096 {
		t.Errorf("Undo = %+v", s.Undo)
	}
	if !s.Selection.ConsistencyCheck {
		t.Error("Selection.ConsistencyCheck = false, want true")
	}
	if s.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", s.Logging.Level)
	}
	// Unset sections keep their defaults.
	if s.Overview != Default().Overview {
		t.Errorf("Overview = %+v, want defaults", s.Overview)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if s != Default() {
		t.Errorf("Load() = %+v, want defaults", s)
	}

	if _, err := Load(""); err != nil {
		t.Errorf("empty path should not fail: %v", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := writeSettings(t, "[undo]\nmax_entries = \n")

	_, err := Load(path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Errorf("Path = %q, want %q", perr.Path, path)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeSettings(t, "[undo]\nmax_entrys = 5\n")

	var perr *ParseError
	if _, err := Load(path); !errors.As(err, &perr) {
		t.Errorf("expected ParseError for unknown key, got %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero entries", "[undo]\nmax_entries = 0\n"},
		{"negative regions", "[overview]\nmax_regions = -1\n"},
		{"zero block size", "[overview]\nblock_size = 0\n"},
		{"bad level", "[logging]\nlevel = \"loud\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.content))
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("expected ErrValidationFailed, got %v", err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeSettings(t, "[undo]\nmax_entries = 50\n")
	t.Setenv("WAVESTORM_UNDO_MAX_ENTRIES", "7")
	t.Setenv("WAVESTORM_LOG_LEVEL", "WARN")
	t.Setenv("WAVESTORM_SELECTION_CONSISTENCY_CHECK", "true")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Undo.MaxEntries != 7 {
		t.Errorf("Undo.MaxEntries = %d, want 7", s.Undo.MaxEntries)
	}
	if s.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", s.Logging.Level)
	}
	if !s.Selection.ConsistencyCheck {
		t.Error("Selection.ConsistencyCheck = false, want true")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WAVESTORM_UNDO_MAX_MEMORY":      "1048576",
		"WAVESTORM_OVERVIEW_BLOCK_SIZE":  "512",
		"WAVESTORM_OVERVIEW_MAX_REGIONS": " ",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	s := Default()
	if err := ApplyEnv(&s, lookup); err != nil {
		t.Fatal(err)
	}
	if s.Undo.MaxMemory != 1048576 {
		t.Errorf("Undo.MaxMemory = %d", s.Undo.MaxMemory)
	}
	if s.Overview.BlockSize != 512 {
		t.Errorf("Overview.BlockSize = %d", s.Overview.BlockSize)
	}
	if s.Overview.MaxRegions != Default().Overview.MaxRegions {
		t.Error("blank value should be treated as unset")
	}

	env["WAVESTORM_UNDO_MAX_MEMORY"] = "lots"
	if err := ApplyEnv(&s, lookup); !errors.Is(err, ErrInvalidEnv) {
		t.Errorf("expected ErrInvalidEnv, got %v", err)
	}
}

func TestEnvVars(t *testing.T) {
	for _, name := range EnvVars() {
		if !strings.HasPrefix(name, EnvPrefix) {
			t.Errorf("%q lacks prefix %q", name, EnvPrefix)
		}
	}
	if len(EnvVars()) != 6 {
		t.Errorf("len(EnvVars()) = %d, want 6", len(EnvVars()))
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		err  ParseError
		want string
	}{
		{ParseError{Path: "a.toml", Line: 3, Column: 4, Message: "bad"}, "parse error in a.toml at line 3, column 4: bad"},
		{ParseError{Path: "a.toml", Line: 3, Message: "bad"}, "parse error in a.toml at line 3: bad"},
		{ParseError{Path: "a.toml", Message: "bad"}, "parse error in a.toml: bad"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
