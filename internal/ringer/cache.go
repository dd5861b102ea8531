package ringer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// SoundCache turns sound handles into local files a player can open.
// Remote handles are downloaded once into dir.
type SoundCache struct {
	fs     afero.Fs
	dir    string
	client *http.Client
}

// NewSoundCache creates a cache rooted at dir. A nil client means
// http.DefaultClient.
func NewSoundCache(fs afero.Fs, dir string, client *http.Client) *SoundCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &SoundCache{fs: fs, dir: dir, client: client}
}

func isRemote(handle string) bool {
	u, err := url.Parse(handle)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// cacheName keeps the extension so players can sniff the format.
func cacheName(handle string) string {
	sum := sha256.Sum256([]byte(handle))
	ext := ""
	if u, err := url.Parse(handle); err == nil {
		ext = path.Ext(u.Path)
	}
	return hex.EncodeToString(sum[:8]) + ext
}

// Path returns a local path for handle, downloading it first if needed.
func (c *SoundCache) Path(ctx context.Context, handle string) (string, error) {
	if !isRemote(handle) {
		return handle, nil
	}
	dst := filepath.Join(c.dir, cacheName(handle))
	if ok, _ := afero.Exists(c.fs, dst); ok {
		return dst, nil
	}
	if err := c.fs.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("create sound cache: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch sound: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch sound: %s", resp.Status)
	}

	tmp := dst + ".part"
	f, err := c.fs.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = c.fs.Remove(tmp)
		return "", fmt.Errorf("fetch sound: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return "", err
	}
	if err := c.fs.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}
