package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Load resolves settings from the defaults, the TOML file at path and the
// process environment. An empty path or a missing file leaves the defaults.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// File doesn't exist, not an error
		case err != nil:
			return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
		default:
			if err := decode(path, data, &s); err != nil {
				return Settings{}, err
			}
		}
	}

	if err := ApplyEnv(&s, os.LookupEnv); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadFromReader decodes settings from r on top of the defaults. The
// environment is not consulted.
func LoadFromReader(r io.Reader) (Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	s := Default()
	if err := decode("<reader>", data, &s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// decode unmarshals TOML data over s. Unknown keys are rejected so typos
// don't pass silently.
func decode(source string, data []byte, s *Settings) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}
