//go:build !windows

package cmd

import (
	"os"
	"syscall"

	"github.com/urfave/cli"
)

// stopSignals end the daemon, a session and the countdown view.
var stopSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// getPlatformCommands returns platform-specific CLI commands.
func getPlatformCommands() []cli.Command {
	return nil
}

func getDaemonAction() cli.ActionFunc {
	return daemon
}
