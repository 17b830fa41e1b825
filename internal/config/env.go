package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "WAVESTORM_"

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// envSetting maps one environment variable onto a setting.
type envSetting struct {
	name string
	set  func(s *Settings, value string) error
}

// envMapping lists the supported overrides.
var envMapping = []envSetting{
	{"UNDO_MAX_ENTRIES", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		s.Undo.MaxEntries = n
		return err
	}},
	{"UNDO_MAX_MEMORY", func(s *Settings, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		s.Undo.MaxMemory = n
		return err
	}},
	{"SELECTION_CONSISTENCY_CHECK", func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		s.Selection.ConsistencyCheck = b
		return err
	}},
	{"OVERVIEW_MAX_REGIONS", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		s.Overview.MaxRegions = n
		return err
	}},
	{"OVERVIEW_BLOCK_SIZE", func(s *Settings, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		s.Overview.BlockSize = n
		return err
	}},
	{"LOG_LEVEL", func(s *Settings, v string) error {
		s.Logging.Level = strings.ToLower(v)
		return nil
	}},
}

// EnvVars returns the names of all supported environment overrides.
func EnvVars() []string {
	names := make([]string, len(envMapping))
	for i, e := range envMapping {
		names[i] = EnvPrefix + e.name
	}
	return names
}

// ApplyEnv overrides settings from environment variables found by lookup.
// Empty values are treated as unset.
func ApplyEnv(s *Settings, lookup LookupFunc) error {
	for _, e := range envMapping {
		key := EnvPrefix + e.name
		val, ok := lookup(key)
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			continue
		}
		if err := e.set(s, val); err != nil {
			return fmt.Errorf("%s=%q: %w", key, val, ErrInvalidEnv)
		}
	}
	return nil
}
