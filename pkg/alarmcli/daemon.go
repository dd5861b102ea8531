package alarmcli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"
)

const (
	daemonStartTimeout = 3 * time.Second
	healthPollInterval = 50 * time.Millisecond
	healthDialTimeout  = 200 * time.Millisecond
)

// EnsureDaemon checks if the daemon answers at u and spawns it if not.
// Returns nil if the daemon is running or was successfully started. A
// daemon on another host is never spawned.
func EnsureDaemon(ctx context.Context, u *DaemonURI) error {
	if isDaemonRunning(ctx, u) {
		return nil
	}
	if !u.IsLoopback() {
		return fmt.Errorf("%w: %s", ErrRemoteDaemon, u)
	}
	if err := spawnDaemon(); err != nil {
		return err
	}
	return waitForHealth(ctx, u, daemonStartTimeout)
}

// daemonCommand runs this executable as a detached daemon. The child
// inherits the environment, so RANDALARM_* settings reach it.
func daemonCommand() (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe, "daemon")
	cmd.SysProcAttr = detachedAttr()
	return cmd, nil
}

func spawnDaemon() error {
	cmd, err := daemonCommand()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	return cmd.Process.Release()
}

// isDaemonRunning reports whether the daemon at u answers its health
// probe.
func isDaemonRunning(ctx context.Context, u *DaemonURI) bool {
	ctx, cancel := context.WithTimeout(ctx, healthDialTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.HealthURL(), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// waitForHealth polls until the daemon answers or timeout expires.
func waitForHealth(ctx context.Context, u *DaemonURI, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if isDaemonRunning(ctx, u) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
	return fmt.Errorf("daemon failed to start within %v", timeout)
}
