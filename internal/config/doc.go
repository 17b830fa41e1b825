// Package config provides the settings of wavestorm.
//
// Settings are resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← WAVESTORM_*
//	├─────────────────────────────┤
//	│  2. Settings File           │  ← settings.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// A missing settings file is not an error; the defaults apply. The result
// is validated before it is returned.
//
// # Basic Usage
//
//	s, err := config.Load("settings.toml")
//	if err != nil {
//	    return err
//	}
//	h := history.NewHistory(seq.UndoManager(),
//	    history.WithMaxEntries(s.Undo.MaxEntries),
//	    history.WithMaxMemory(s.Undo.MaxMemory))
//
// # Settings File
//
//	[undo]
//	max_entries = 500
//	max_memory = 67108864
//
//	[selection]
//	consistency_check = true
//
//	[overview]
//	max_regions = 32
//	block_size = 256
//
//	[logging]
//	level = "debug"
package config
