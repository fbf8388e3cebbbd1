// Package prefs persists the autoplay preference: a single boolean, read
// once at startup and written on every toggle. A missing or unreadable
// file means autoplay off; write failures are logged, never fatal.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const autoplayKey = "tutor_autoplay"

// Store holds the in-memory preference and its backing file.
type Store struct {
	path     string
	log      zerolog.Logger
	autoplay bool
}

// DefaultPath returns the preference file location under the user config
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "speakdrill", "prefs.json"), nil
}

// Open reads the preference file at path. Absence, unreadable content, or
// a malformed file all fall back to the defaults.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{path: path, log: log}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("could not read preferences, using defaults")
		}
		return s
	}

	var values map[string]bool
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("malformed preferences file, using defaults")
		return s
	}
	s.autoplay = values[autoplayKey]
	return s
}

// Autoplay reports whether tutor replies should play automatically.
func (s *Store) Autoplay() bool {
	return s.autoplay
}

// ToggleAutoplay flips the preference, writes it through, and returns the
// new value.
func (s *Store) ToggleAutoplay() bool {
	s.autoplay = !s.autoplay
	s.save()
	return s.autoplay
}

func (s *Store) save() {
	data, _ := json.MarshalIndent(map[string]bool{autoplayKey: s.autoplay}, "", "  ")

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("could not create preferences directory")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("could not save preferences")
	}
}
