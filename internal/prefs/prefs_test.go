package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpenMissingFileDefaultsOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	s := Open(path, zerolog.Nop())
	if s.Autoplay() {
		t.Error("Autoplay() = true for a missing file, want false")
	}
}

func TestOpenMalformedFileDefaultsOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path, zerolog.Nop())
	if s.Autoplay() {
		t.Error("Autoplay() = true for a malformed file, want false")
	}
}

func TestTogglePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.json")

	s := Open(path, zerolog.Nop())
	if got := s.ToggleAutoplay(); !got {
		t.Fatal("first toggle should enable autoplay")
	}

	// A fresh store sees the persisted value.
	s2 := Open(path, zerolog.Nop())
	if !s2.Autoplay() {
		t.Error("persisted value not read back")
	}

	if got := s2.ToggleAutoplay(); got {
		t.Error("second toggle should disable autoplay")
	}
	s3 := Open(path, zerolog.Nop())
	if s3.Autoplay() {
		t.Error("disabled value not persisted")
	}
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	// Point the store at a path whose parent is a file, so MkdirAll fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(filepath.Join(blocker, "prefs.json"), zerolog.Nop())
	if got := s.ToggleAutoplay(); !got {
		t.Error("toggle should still flip the in-memory value")
	}
}
