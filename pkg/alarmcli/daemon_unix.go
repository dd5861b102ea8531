//go:build !windows

package alarmcli

import "syscall"

// detachedAttr moves the daemon into its own process group, out of reach
// of the terminal's hangup and interrupt signals.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
