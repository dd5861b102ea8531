//go:build windows

package cmd

import (
	"os"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/internal/service"
	"github.com/urfave/cli"
)

// stopSignals end the daemon, a session and the countdown view. The SCM
// stops the service through its own handler.
var stopSignals = []os.Signal{os.Interrupt}

// getPlatformCommands returns Windows-specific CLI commands.
func getPlatformCommands() []cli.Command {
	return []cli.Command{serviceCommand()}
}

func getDaemonAction() cli.ActionFunc {
	return daemonWindows
}

// daemonWindows runs under the SCM when started as a service and as a
// console daemon otherwise.
func daemonWindows(ctx *cli.Context) error {
	isService, err := service.IsWindowsService()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "detect_service", err)
		return nil
	}
	if !isService {
		return daemon(ctx)
	}
	return runAsWindowsService(ctx)
}

func runAsWindowsService(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	l, closeLog, err := openDaemonLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	comps, err := initDaemonComponents(cfg, l)
	if err != nil {
		l.Error("daemon: init: %v", err)
		return err
	}
	defer comps.Close()
	return service.Run(service.DefaultName, service.NewWindowsHandler(comps.Runner, l))
}
