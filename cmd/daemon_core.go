package cmd

import (
	"github.com/randalarm/randalarm/internal/config"
	daemonpkg "github.com/randalarm/randalarm/internal/daemon"
	"github.com/randalarm/randalarm/internal/notify"
	"github.com/randalarm/randalarm/pkg/logger"
)

// DaemonComponents holds all initialized daemon components so that they
// are released in one place however the daemon stops.
type DaemonComponents struct {
	Notifier notify.Notifier
	Runner   *daemonpkg.Runner
	logger   logger.Logger
}

// Close stops the runner if it is still serving. The runner shuts the
// notifier down itself when it stops.
func (c *DaemonComponents) Close() {
	if c.logger != nil {
		c.logger.Info("Shutting down daemon...")
	}
	if c.Runner != nil && c.Runner.IsRunning() {
		_ = c.Runner.Shutdown()
	}
	if c.logger != nil {
		c.logger.Info("Daemon stopped")
	}
}

// buildNotifier opens every notification backend the config enables. A
// backend that cannot start is logged and skipped.
var buildNotifier = func(cfg *config.Config, l logger.Logger) notify.Notifier {
	var backends []notify.Notifier
	if cfg.Notify.Desktop {
		d, err := notify.NewDesktop(logger.Component(l, "desktop"))
		if err != nil {
			l.Warning("desktop notifications unavailable: %v", err)
		} else {
			backends = append(backends, d)
		}
	}
	if cfg.Notify.TelegramToken != "" {
		t, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChat, logger.Component(l, "telegram"))
		if err != nil {
			l.Warning("telegram notifications unavailable: %v", err)
		} else {
			backends = append(backends, t)
		}
	}
	return notify.NewMulti(backends...)
}

// initDaemonComponents resolves the RPC secret, opens the notification
// backends and prepares the runner.
func initDaemonComponents(cfg *config.Config, l logger.Logger) (*DaemonComponents, error) {
	sec, err := rpcSecret(cfg, l, true)
	if err != nil {
		return nil, err
	}
	n := buildNotifier(cfg, l)
	r := daemonpkg.New(&daemonpkg.Config{
		Port:            cfg.Daemon.Port,
		MaxConns:        cfg.Daemon.MaxConns,
		Secret:          sec,
		Housekeeping:    cfg.HousekeepingCron,
		MissedGrace:     cfg.MissedGrace,
		ShutdownTimeout: shutdownTimeout,
	}, &daemonpkg.Dependencies{
		Notifier: n,
		Log:      l,
	})
	return &DaemonComponents{
		Notifier: n,
		Runner:   r,
		logger:   l,
	}, nil
}
