package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPidFile_WriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	if err := WritePidFile(dir); err != nil {
		t.Fatalf("WritePidFile: %v", err)
	}
	pid, err := ReadPidFile(dir)
	if err != nil {
		t.Fatalf("ReadPidFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("got pid %d, want %d", pid, os.Getpid())
	}
	if !isProcessRunning(pid) {
		t.Error("own process reported as not running")
	}
	if err := RemovePidFile(dir); err != nil {
		t.Fatalf("RemovePidFile: %v", err)
	}
	if _, err := os.Stat(getPidFilePath(dir)); !os.IsNotExist(err) {
		t.Errorf("pid file still present: %v", err)
	}
	// removing twice is fine
	if err := RemovePidFile(dir); err != nil {
		t.Errorf("second RemovePidFile: %v", err)
	}
}

func TestReadPidFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "not-a-pid"},
		{"zero", "0"},
		{"negative", "-12"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, pidFileName), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadPidFile(dir); err == nil {
				t.Errorf("ReadPidFile(%q) should fail", tt.content)
			}
		})
	}
}

func TestReadPidFile_Missing(t *testing.T) {
	if _, err := ReadPidFile(t.TempDir()); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
