package alarmlib

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Sound is a catalog entry. File is an opaque playable handle (a URL or a
// local path) and is never inspected by the engine.
type Sound struct {
	Name   string `json:"name"`
	File   string `json:"file"`
	Custom bool   `json:"isCustom,omitempty"`
}

// DefaultSounds are the built-in sounds. The first one is the fallback for
// alarms whose sound was removed.
var DefaultSounds = []Sound{
	{Name: "Classic Bell", File: "https://www.soundjay.com/phone/sounds/telephone-ring-03b.mp3"},
	{Name: "Digital Beep", File: "https://www.soundjay.com/phone/sounds/phone-off-hook-1.mp3"},
	{Name: "Gentle Chime", File: "https://www.soundjay.com/misc/sounds/bell-ringing-05.wav"},
	{Name: "Nature Sounds", File: "https://www.soundjay.com/ambient/sounds/spring-weather-1.mp3"},
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".oga": true,
	".flac": true, ".m4a": true, ".aac": true, ".opus": true,
}

// Catalog maps sound names to handles. It is not safe for concurrent use;
// the engine serializes access.
type Catalog struct {
	custom []Sound
}

// NewCatalog builds a catalog from previously saved custom sounds.
func NewCatalog(custom []Sound) *Catalog {
	c := &Catalog{}
	for _, s := range custom {
		s.Custom = true
		c.custom = append(c.custom, s)
	}
	return c
}

// Default returns the fallback sound.
func (c *Catalog) Default() Sound {
	return DefaultSounds[0]
}

// Sounds returns built-in sounds followed by custom ones.
func (c *Catalog) Sounds() []Sound {
	out := make([]Sound, 0, len(DefaultSounds)+len(c.custom))
	out = append(out, DefaultSounds...)
	return append(out, c.custom...)
}

// Custom returns only the custom sounds, in the order they were added.
func (c *Catalog) Custom() []Sound {
	return append([]Sound(nil), c.custom...)
}

// Lookup finds a sound by name (case-insensitive) or by handle.
func (c *Catalog) Lookup(key string) (Sound, bool) {
	for _, s := range c.Sounds() {
		if strings.EqualFold(s.Name, key) || s.File == key {
			return s, true
		}
	}
	return Sound{}, false
}

// Add registers a custom sound.
func (c *Catalog) Add(s Sound) error {
	if _, ok := c.Lookup(s.Name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Name)
	}
	s.Custom = true
	c.custom = append(c.custom, s)
	return nil
}

// Remove drops a custom sound by name or handle and returns it.
func (c *Catalog) Remove(key string) (Sound, error) {
	for _, s := range DefaultSounds {
		if strings.EqualFold(s.Name, key) || s.File == key {
			return Sound{}, ErrBuiltinSound
		}
	}
	for i, s := range c.custom {
		if strings.EqualFold(s.Name, key) || s.File == key {
			c.custom = append(c.custom[:i], c.custom[i+1:]...)
			return s, nil
		}
	}
	return Sound{}, fmt.Errorf("%w: %s", ErrSoundNotFound, key)
}

// ImportSound copies an audio file from src into dir on fs and returns the
// catalog entry for the copy. name defaults to the file's base name.
func ImportSound(fs afero.Fs, dir, src, name string) (Sound, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if !audioExts[ext] {
		return Sound{}, fmt.Errorf("%w: %s", ErrNotAudio, src)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return Sound{}, fmt.Errorf("create sound dir: %w", err)
	}
	in, err := fs.Open(src)
	if err != nil {
		return Sound{}, err
	}
	defer in.Close()

	dst := filepath.Join(dir, filepath.Base(src))
	out, err := fs.Create(dst)
	if err != nil {
		return Sound{}, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = fs.Remove(dst)
		return Sound{}, fmt.Errorf("copy sound: %w", err)
	}
	if err := out.Close(); err != nil {
		return Sound{}, err
	}
	return Sound{Name: name, File: dst, Custom: true}, nil
}
