package cmd

import (
	"fmt"
	"os"

	"github.com/emersion/go-autostart"
	"github.com/randalarm/randalarm/cmd/common"
	"github.com/urfave/cli"
)

// newAutostartApp describes the login entry that starts the daemon.
func newAutostartApp(exe string) *autostart.App {
	return &autostart.App{
		Name:        "randalarm",
		DisplayName: "randalarm daemon",
		Exec:        []string{exe, "daemon"},
	}
}

func enableAutostart(ctx *cli.Context) error {
	exe, err := os.Executable()
	if err != nil {
		common.PrintRuntimeErr(ctx, "autostart", "executable", err)
		return nil
	}
	app := newAutostartApp(exe)
	if app.IsEnabled() {
		fmt.Println("Autostart is already enabled")
		return nil
	}
	if err := app.Enable(); err != nil {
		common.PrintRuntimeErr(ctx, "autostart", "enable", err)
		return nil
	}
	fmt.Println("The daemon will start when you log in")
	return nil
}

func disableAutostart(ctx *cli.Context) error {
	app := newAutostartApp("")
	if !app.IsEnabled() {
		fmt.Println("Autostart is not enabled")
		return nil
	}
	if err := app.Disable(); err != nil {
		common.PrintRuntimeErr(ctx, "autostart", "disable", err)
		return nil
	}
	fmt.Println("Autostart disabled")
	return nil
}
