package config

import (
	"fmt"
	"strings"

	"github.com/dshills/wavestorm/internal/engine/history"
	"github.com/dshills/wavestorm/internal/engine/overview"
)

// Settings holds every configurable value.
type Settings struct {
	Undo      UndoSettings      `toml:"undo"`
	Selection SelectionSettings `toml:"selection"`
	Overview  OverviewSettings  `toml:"overview"`
	Logging   LoggingSettings   `toml:"logging"`
}

// UndoSettings limits the undo history.
type UndoSettings struct {
	// MaxEntries is the number of undo transactions kept.
	MaxEntries int `toml:"max_entries"`

	// MaxMemory is the undo memory budget in bytes. Zero means unlimited.
	MaxMemory uint64 `toml:"max_memory"`
}

// SelectionSettings configures selection trackers.
type SelectionSettings struct {
	// ConsistencyCheck logs multitrack edits whose ranges differ per track.
	ConsistencyCheck bool `toml:"consistency_check"`
}

// OverviewSettings configures overview caches.
type OverviewSettings struct {
	MaxRegions int    `toml:"max_regions"`
	BlockSize  uint64 `toml:"block_size"`
}

// LoggingSettings configures the logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Undo: UndoSettings{
			MaxEntries: history.DefaultMaxEntries,
		},
		Overview: OverviewSettings{
			MaxRegions: overview.DefaultMaxRegions,
			BlockSize:  overview.DefaultBlockSize,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Validate checks that every setting is usable.
func (s Settings) Validate() error {
	if s.Undo.MaxEntries <= 0 {
		return fmt.Errorf("undo.max_entries must be positive, got %d: %w", s.Undo.MaxEntries, ErrValidationFailed)
	}
	if s.Overview.MaxRegions <= 0 {
		return fmt.Errorf("overview.max_regions must be positive, got %d: %w", s.Overview.MaxRegions, ErrValidationFailed)
	}
	if s.Overview.BlockSize == 0 {
		return fmt.Errorf("overview.block_size must be positive: %w", ErrValidationFailed)
	}
	switch strings.ToLower(s.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error: %w", s.Logging.Level, ErrValidationFailed)
	}
	return nil
}
