package cmd

import (
	"fmt"
	"os"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/urfave/cli"
)

func stopDaemon(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop-daemon", "load_config", err)
		return nil
	}
	pid, err := ReadPidFile(cfg.ConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (PID file not found)")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Error reading PID file: %v\n", err)
		return nil
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)

	if err := killDaemon(pid); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping daemon: %v\n", err)
		return nil
	}

	// the daemon removes its PID file on the way out
	fmt.Println("Daemon stopped successfully")
	return nil
}
