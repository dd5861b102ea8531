//go:build windows

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/internal/config"
	"github.com/randalarm/randalarm/internal/service"
	"github.com/urfave/cli"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc/eventlog"
)

var (
	errRequiresAdmin    = errors.New("this operation requires administrator privileges")
	errServiceNeedsFile = errors.New("the service needs rpc_secret set in the config file")
)

// Replaced in tests.
var (
	isAdminFunc = isAdmin
	connectSCM  = service.ConnectSCM
)

// isAdmin reports whether the process token is in BUILTIN\Administrators.
func isAdmin() bool {
	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)
	member, err := windows.Token(0).IsMember(sid)
	return err == nil && member
}

func serviceCommand() cli.Command {
	return cli.Command{
		Name:        "service",
		Usage:       "runs the daemon as a Windows service",
		Description: ServiceDescription,
		Subcommands: []cli.Command{
			{Name: "install", Usage: "installs the service", Action: serviceInstall},
			{Name: "uninstall", Usage: "removes the service", Action: serviceUninstall},
			{Name: "start", Usage: "starts the service", Action: serviceStart},
			{Name: "stop", Usage: "stops the service", Action: serviceStop},
			{Name: "status", Usage: "shows the service state", Action: serviceStatus},
		},
	}
}

// withManager opens the SCM, checking for elevation when admin is set.
func withManager(ctx *cli.Context, action string, admin bool, fn func(*service.Manager) error) error {
	if admin && !isAdminFunc() {
		common.PrintRuntimeErr(ctx, "service", action, errRequiresAdmin)
		return nil
	}
	scm, err := connectSCM()
	if err != nil {
		common.PrintRuntimeErr(ctx, "service", action, err)
		return nil
	}
	defer scm.Close()
	if err := fn(service.NewManager(scm, service.DefaultName)); err != nil {
		common.PrintRuntimeErr(ctx, "service", action, err)
	}
	return nil
}

// serviceConfigPath returns the config file the service will read. The
// service runs as LocalSystem, so it cannot see the user's keyring; the
// shared secret has to come from the file.
func serviceConfigPath(ctx *cli.Context) (string, error) {
	path := ctx.GlobalString("config")
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, config.FileName)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	probe := config.Default("")
	if err := probe.LoadFile(appFs, path, true); err != nil {
		return "", err
	}
	if probe.RPCSecret == "" {
		return "", fmt.Errorf("%w (%s)", errServiceNeedsFile, path)
	}
	return path, nil
}

func serviceInstall(ctx *cli.Context) error {
	exe, err := os.Executable()
	if err != nil {
		common.PrintRuntimeErr(ctx, "service", "executable", err)
		return nil
	}
	path, err := serviceConfigPath(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "service", "config", err)
		return nil
	}
	return withManager(ctx, "install", true, func(m *service.Manager) error {
		err := m.Install(exe, service.Config{
			DisplayName: service.DefaultDisplayName,
			Description: service.DefaultDescription,
			StartType:   service.StartTypeAutomatic,
			Args:        []string{"--config", path, "daemon"},
		})
		if err != nil {
			return err
		}
		if err := eventlog.InstallAsEventCreate(service.DefaultName, eventlog.Info|eventlog.Warning|eventlog.Error); err != nil {
			_ = m.Uninstall()
			return fmt.Errorf("register event source: %w", err)
		}
		fmt.Printf("Service %q installed, reading %s\n", service.DefaultName, path)
		return nil
	})
}

func serviceUninstall(ctx *cli.Context) error {
	return withManager(ctx, "uninstall", true, func(m *service.Manager) error {
		if err := m.Uninstall(); err != nil {
			return err
		}
		_ = eventlog.Remove(service.DefaultName)
		fmt.Printf("Service %q uninstalled\n", service.DefaultName)
		return nil
	})
}

func serviceStart(ctx *cli.Context) error {
	return withManager(ctx, "start", true, func(m *service.Manager) error {
		if err := m.Start(); err != nil {
			return err
		}
		fmt.Printf("Service %q started\n", service.DefaultName)
		return nil
	})
}

func serviceStop(ctx *cli.Context) error {
	return withManager(ctx, "stop", true, func(m *service.Manager) error {
		if err := m.Stop(); err != nil {
			return err
		}
		fmt.Printf("Service %q stopped\n", service.DefaultName)
		return nil
	})
}

func serviceStatus(ctx *cli.Context) error {
	return withManager(ctx, "status", false, func(m *service.Manager) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Printf("Service %q: %s\n", service.DefaultName, st)
		return nil
	})
}
