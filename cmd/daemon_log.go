package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/randalarm/randalarm/internal/config"
	"github.com/randalarm/randalarm/pkg/logger"
)

// daemonLogFile keeps the log of a daemon spawned without a terminal.
const daemonLogFile = "daemon.log"

// openDaemonLog returns the daemon logger. Lines go to stderr and to
// daemon.log in the config dir, and to the platform log where there is one.
// The returned func releases the file.
func openDaemonLog(cfg *config.Config) (logger.Logger, func(), error) {
	if err := appFs.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create config dir: %w", err)
	}
	f, err := appFs.OpenFile(filepath.Join(cfg.ConfigDir, daemonLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open daemon log: %w", err)
	}
	base := logger.NewLogrus(io.MultiWriter(os.Stderr, f), cfg.Log.Level, cfg.Log.Format)
	l := withPlatformLog(base)
	return l, func() {
		_ = l.Close()
		_ = f.Close()
	}, nil
}
