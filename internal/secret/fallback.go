package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	secretFileName = "rpc.secret"
	secretFileMode = 0600
)

// FileStore keeps the secret in a 0600 file inside the config directory,
// for systems without a usable keyring.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a FileStore rooted at configDir.
func NewFileStore(fs afero.Fs, configDir string) *FileStore {
	return &FileStore{fs: fs, dir: configDir}
}

func (f *FileStore) path() string {
	return filepath.Join(f.dir, secretFileName)
}

func (f *FileStore) Get() (string, error) {
	data, err := afero.ReadFile(f.fs, f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", ErrNotFound
	}
	return s, nil
}

// Set writes the secret atomically: temp file, chmod, rename.
func (f *FileStore) Set(s string) error {
	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := afero.TempFile(f.fs, f.dir, ".rpc.secret.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(s); err != nil {
		tmp.Close()
		f.fs.Remove(tmpPath)
		return fmt.Errorf("write secret: %w", err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := f.fs.Chmod(tmpPath, secretFileMode); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := f.fs.Rename(tmpPath, f.path()); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("rename secret file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete() error {
	err := f.fs.Remove(f.path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
