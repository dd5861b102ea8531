package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/urfave/cli"
)

func daemon(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	l, closeLog, err := openDaemonLog(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "log", err)
		return nil
	}
	defer closeLog()

	if pid, err := ReadPidFile(cfg.ConfigDir); err == nil && isProcessRunning(pid) {
		common.PrintRuntimeErr(ctx, "daemon", "pid_file", fmt.Errorf("daemon already running (PID %d)", pid))
		return nil
	}
	if err := WritePidFile(cfg.ConfigDir); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "pid_file", err)
		return nil
	}
	defer func() { _ = RemovePidFile(cfg.ConfigDir) }()

	comps, err := initDaemonComponents(cfg, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "init", err)
		return nil
	}
	defer comps.Close()

	sctx, cancel := untilStopped()
	defer cancel()

	err = comps.Runner.Start(sctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "daemon", "start", err)
	}
	return nil
}
