package ringer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
)

func TestSoundCache_LocalHandle(t *testing.T) {
	c := NewSoundCache(afero.NewMemMapFs(), "/cache", nil)
	got, err := c.Path(context.Background(), "/music/wake.ogg")
	if err != nil || got != "/music/wake.ogg" {
		t.Fatalf("Path() = %q, %v", got, err)
	}
}

func TestSoundCache_DownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("RIFF...."))
	}))
	defer hs.Close()

	fs := afero.NewMemMapFs()
	c := NewSoundCache(fs, "/cache", hs.Client())
	handle := hs.URL + "/sounds/bell.wav"

	p1, err := c.Path(context.Background(), handle)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if filepath.Dir(p1) != "/cache" || !strings.HasSuffix(p1, ".wav") {
		t.Fatalf("unexpected cache path %q", p1)
	}
	data, err := afero.ReadFile(fs, p1)
	if err != nil || string(data) != "RIFF...." {
		t.Fatalf("cached content %q, %v", data, err)
	}

	p2, err := c.Path(context.Background(), handle)
	if err != nil || p2 != p1 {
		t.Fatalf("second Path() = %q, %v", p2, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one download, got %d", hits.Load())
	}
}

func TestSoundCache_HTTPError(t *testing.T) {
	hs := httptest.NewServer(http.NotFoundHandler())
	defer hs.Close()
	fs := afero.NewMemMapFs()
	c := NewSoundCache(fs, "/cache", hs.Client())
	if _, err := c.Path(context.Background(), hs.URL+"/missing.mp3"); err == nil {
		t.Fatal("expected an error for 404")
	}
	entries, _ := afero.ReadDir(fs, "/cache")
	if len(entries) != 0 {
		t.Fatalf("failed download left files behind: %v", entries)
	}
}
