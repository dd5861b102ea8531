package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/config"
	"github.com/randalarm/randalarm/internal/secret"
	"github.com/randalarm/randalarm/pkg/alarmcli"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

// appFs is the filesystem used for config, secrets and sounds. Tests swap
// in an in-memory one.
var appFs afero.Fs = afero.NewOsFs()

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config",
		Usage:  "path to the YAML config file",
		EnvVar: common.ConfigEnv,
	},
	cli.IntFlag{
		Name:  "port",
		Usage: "loopback port of the daemon",
	},
	cli.StringFlag{
		Name:  "daemon",
		Usage: "daemon address to dial instead of the loopback port",
	},
	cli.StringFlag{
		Name:  "store-driver",
		Usage: "alarm storage backend (sqlite, postgres, bolt, memory)",
	},
	cli.StringFlag{
		Name:  "store-dsn",
		Usage: "data source name of the alarm storage",
	},
	cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug, info, warn, error)",
	},
	cli.StringFlag{
		Name:  "log-format",
		Usage: "log format (text, json)",
	},
	cli.StringFlag{
		Name:  "player",
		Usage: `audio player command, or "none" for the terminal bell`,
	},
	cli.DurationFlag{
		Name:  "missed-grace",
		Usage: "how late a missed alarm still rings after a restart",
	},
	cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug logging",
	},
}

// loadConfig merges the layered configuration with the global flags the
// user set explicitly.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(appFs, ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	applyGlobalFlags(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Daemon.URI != "" {
		if _, err := alarmcli.ParseDaemonURI(cfg.Daemon.URI); err != nil {
			return nil, fmt.Errorf("daemon uri: %w", err)
		}
	}
	return cfg, nil
}

func applyGlobalFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.GlobalIsSet("port") {
		cfg.Daemon.Port = ctx.GlobalInt("port")
	}
	if ctx.GlobalIsSet("daemon") {
		cfg.Daemon.URI = ctx.GlobalString("daemon")
	}
	if ctx.GlobalIsSet("store-driver") {
		cfg.Store.Driver = ctx.GlobalString("store-driver")
	}
	if ctx.GlobalIsSet("store-dsn") {
		cfg.Store.DSN = ctx.GlobalString("store-dsn")
	}
	if ctx.GlobalIsSet("log-level") {
		cfg.Log.Level = ctx.GlobalString("log-level")
	}
	if ctx.GlobalIsSet("log-format") {
		cfg.Log.Format = ctx.GlobalString("log-format")
	}
	if ctx.GlobalIsSet("player") {
		cfg.Player = ctx.GlobalString("player")
	}
	if ctx.GlobalIsSet("missed-grace") {
		cfg.MissedGrace = ctx.GlobalDuration("missed-grace")
	}
	if ctx.GlobalBool("debug") {
		cfg.Debug = true
		cfg.Log.Level = "debug"
	}
}

// newLogger builds the process logger. CLI output goes to stdout, so logs
// go to stderr.
func newLogger(cfg *config.Config) *logger.LogrusLogger {
	return logger.NewLogrus(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func openStorage(cfg *config.Config, l logger.Logger) (*alarmlib.Storage, error) {
	if err := appFs.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	kv, err := alarmlib.OpenKV(cfg.Store.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	return alarmlib.NewStorage(kv, logger.Component(l, "storage")), nil
}

func secretStore(cfg *config.Config, l logger.Logger) secret.Store {
	return secret.NewChain(
		logger.Component(l, "secret"),
		secret.NewKeyring(),
		secret.NewFileStore(appFs, cfg.ConfigDir),
	)
}

// rpcSecret returns the bearer secret sessions and the daemon share. Only
// the daemon creates one.
func rpcSecret(cfg *config.Config, l logger.Logger, create bool) (string, error) {
	return secret.Resolve(cfg.RPCSecret, secretStore(cfg, l), create)
}

// daemonURI is the configured daemon address, or the loopback port. A
// malformed address is rejected by loadConfig.
func daemonURI(cfg *config.Config) *alarmcli.DaemonURI {
	if cfg.Daemon.URI != "" {
		if u, err := alarmcli.ParseDaemonURI(cfg.Daemon.URI); err == nil {
			return u
		}
	}
	return alarmcli.LocalURI(cfg.Daemon.Port)
}

// oneShotTimeout bounds how long a management command waits on the
// daemon.
const oneShotTimeout = 10 * time.Second
