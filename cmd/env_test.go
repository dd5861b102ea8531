package cmd

import (
	"testing"
	"time"

	"github.com/randalarm/randalarm/internal/config"
)

func TestApplyGlobalFlags(t *testing.T) {
	ctx := newContext(t,
		"--port", "4455",
		"--daemon", "ws://10.0.0.2:9300",
		"--store-driver", "bolt",
		"--store-dsn", "/tmp/alarms.db",
		"--log-format", "json",
		"--player", "mpv --no-video",
		"--missed-grace", "90s",
		"--debug",
	)
	cfg := config.Default(t.TempDir())
	applyGlobalFlags(ctx, cfg)

	if cfg.Daemon.Port != 4455 || cfg.Daemon.URI != "ws://10.0.0.2:9300" {
		t.Errorf("daemon: got %+v", cfg.Daemon)
	}
	if cfg.Store.Driver != "bolt" || cfg.Store.DSN != "/tmp/alarms.db" {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format: got %q", cfg.Log.Format)
	}
	if cfg.Log.Level != "debug" || !cfg.Debug {
		t.Errorf("--debug should force the debug level, got %q", cfg.Log.Level)
	}
	if cfg.Player != "mpv --no-video" {
		t.Errorf("player: got %q", cfg.Player)
	}
	if cfg.MissedGrace != 90*time.Second {
		t.Errorf("missed grace: got %s", cfg.MissedGrace)
	}
}

func TestApplyGlobalFlags_UnsetKeepsConfig(t *testing.T) {
	cfg := config.Default(t.TempDir())
	want := *cfg
	applyGlobalFlags(newContext(t), cfg)
	if cfg.Daemon != want.Daemon || cfg.Store != want.Store || cfg.Log != want.Log {
		t.Errorf("config changed without flags: got %+v, want %+v", cfg, &want)
	}
	if cfg.Player != want.Player || cfg.MissedGrace != want.MissedGrace {
		t.Errorf("config changed without flags: got %+v, want %+v", cfg, &want)
	}
}

func TestRPCSecret_CreateOnce(t *testing.T) {
	cfg := testConfig(t)
	l := newLogger(cfg)
	first, err := rpcSecret(cfg, l, true)
	if err != nil || first == "" {
		t.Fatalf("create secret: %q, %v", first, err)
	}
	again, err := rpcSecret(cfg, l, false)
	if err != nil {
		t.Fatalf("read secret: %v", err)
	}
	if again != first {
		t.Errorf("secret changed: %q != %q", again, first)
	}
}

func TestRPCSecret_ConfigWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPCSecret = "from-config"
	got, err := rpcSecret(cfg, newLogger(cfg), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "from-config" {
		t.Errorf("got %q", got)
	}
}

func TestDaemonURI(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Daemon.Port = 9100
	if got := daemonURI(cfg).Address; got != "127.0.0.1:9100" {
		t.Errorf("loopback address = %q", got)
	}
	cfg.Daemon.URI = "tcp://alarms.lan:9300"
	u := daemonURI(cfg)
	if u.Address != "alarms.lan:9300" || u.IsLoopback() {
		t.Errorf("configured address not used: %+v", u)
	}
}
