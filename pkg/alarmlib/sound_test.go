package alarmlib

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestCatalog_AddRemove(t *testing.T) {
	c := NewCatalog(nil)
	if got := len(c.Sounds()); got != len(DefaultSounds) {
		t.Fatalf("expected %d sounds, got %d", len(DefaultSounds), got)
	}
	if err := c.Add(Sound{Name: "Rooster", File: "/s/rooster.mp3"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(Sound{Name: "rooster", File: "/s/other.mp3"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if s, ok := c.Lookup("/s/rooster.mp3"); !ok || !s.Custom {
		t.Fatalf("expected custom sound by handle, got %+v %v", s, ok)
	}
	if _, err := c.Remove("Classic Bell"); !errors.Is(err, ErrBuiltinSound) {
		t.Fatalf("expected ErrBuiltinSound, got %v", err)
	}
	removed, err := c.Remove("Rooster")
	if err != nil || removed.File != "/s/rooster.mp3" {
		t.Fatalf("Remove: %+v %v", removed, err)
	}
	if _, err := c.Remove("Rooster"); !errors.Is(err, ErrSoundNotFound) {
		t.Fatalf("expected ErrSoundNotFound, got %v", err)
	}
	if c.Default() != DefaultSounds[0] {
		t.Fatal("default sound must be the first built-in")
	}
}

func TestImportSound(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/home/u/rooster.mp3", []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := ImportSound(fs, "/data/sounds", "/home/u/rooster.mp3", "")
	if err != nil {
		t.Fatalf("ImportSound: %v", err)
	}
	if s.Name != "rooster" || s.File != filepath.Join("/data/sounds", "rooster.mp3") || !s.Custom {
		t.Fatalf("unexpected sound %+v", s)
	}
	data, err := afero.ReadFile(fs, s.File)
	if err != nil || string(data) != "ID3" {
		t.Fatalf("copy missing or wrong: %q %v", data, err)
	}

	_ = afero.WriteFile(fs, "/home/u/notes.txt", []byte("x"), 0644)
	if _, err := ImportSound(fs, "/data/sounds", "/home/u/notes.txt", ""); !errors.Is(err, ErrNotAudio) {
		t.Fatalf("expected ErrNotAudio, got %v", err)
	}
}
