// Package config loads randalarm settings. Sources are layered, lowest
// precedence first: built-in defaults, the YAML config file, .env files and
// the process environment. Command-line flags are applied on top by the
// CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up inside the config directory.
const FileName = "config.yaml"

const (
	sqliteFile = "alarms.db"
	boltFile   = "alarms.bolt"
)

var (
	ErrInvalidPort   = errors.New("invalid daemon port")
	ErrInvalidDriver = errors.New("invalid store driver")
	ErrInvalidCron   = errors.New("invalid housekeeping cron")
	ErrInvalidGrace  = errors.New("invalid missed grace")
)

type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Daemon struct {
	Port     int `yaml:"port"`
	MaxConns int `yaml:"max_conns"`
	// URI overrides the loopback address clients dial, e.g. a daemon
	// reached through a tunnel.
	URI string `yaml:"uri"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Notify struct {
	Desktop       bool   `yaml:"desktop"`
	TelegramToken string `yaml:"telegram_token"`
	TelegramChat  int64  `yaml:"telegram_chat"`
}

// Config is the merged configuration.
type Config struct {
	ConfigDir        string        `yaml:"config_dir"`
	Store            Store         `yaml:"store"`
	Daemon           Daemon        `yaml:"daemon"`
	RPCSecret        string        `yaml:"rpc_secret"`
	Log              Log           `yaml:"log"`
	Player           string        `yaml:"player"`
	MissedGrace      time.Duration `yaml:"missed_grace"`
	HousekeepingCron string        `yaml:"housekeeping_cron"`
	Notify           Notify        `yaml:"notify"`
	Debug            bool          `yaml:"debug"`
}

// DefaultDir is the per-user config directory, unless RANDALARM_CONFIG_DIR
// overrides it.
func DefaultDir() (string, error) {
	if dir := os.Getenv(common.ConfigDirEnv); dir != "" {
		return filepath.Abs(dir)
	}
	cdr, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cdr, "randalarm"), nil
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		ConfigDir: dir,
		Store:     Store{Driver: alarmlib.DriverSQLite},
		Daemon: Daemon{
			Port:     common.DefaultPort,
			MaxConns: common.DefaultMaxConns,
		},
		Log:              Log{Level: "info", Format: "text"},
		Player:           "paplay",
		MissedGrace:      common.DefaultMissedGrace,
		HousekeepingCron: common.DefaultHousekeepingCron,
		Notify:           Notify{Desktop: true},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment. path may be empty, in which case $RANDALARM_CONFIG or
// <configDir>/config.yaml is used; only an explicitly named file must
// exist.
func Load(fs afero.Fs, path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	cfg := Default(dir)

	explicit := path != ""
	if !explicit {
		path = os.Getenv(common.ConfigEnv)
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(dir, FileName)
	}
	if err := cfg.LoadFile(fs, path, explicit); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	_ = godotenv.Load(filepath.Join(cfg.ConfigDir, ".env"))
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	return cfg, nil
}

// LoadFile merges the YAML file at path into c. A missing file is an
// error only when required.
func (c *Config) LoadFile(fs afero.Fs, path string, required bool) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv merges RANDALARM_* variables into c.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str(common.ConfigDirEnv, &c.ConfigDir)
	str(common.DaemonURIEnv, &c.Daemon.URI)
	str(common.StoreDriverEnv, &c.Store.Driver)
	str(common.StoreDSNEnv, &c.Store.DSN)
	str(common.SecretEnv, &c.RPCSecret)
	str(common.LogLevelEnv, &c.Log.Level)
	str(common.LogFormatEnv, &c.Log.Format)
	str(common.PlayerEnv, &c.Player)
	str(common.HousekeepingEnv, &c.HousekeepingCron)
	str(common.TelegramTokenEnv, &c.Notify.TelegramToken)

	if v := getenv(common.PortEnv); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPort, common.PortEnv, v)
		}
		c.Daemon.Port = p
	}
	if v := getenv(common.MaxConnsEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", common.MaxConnsEnv, v, err)
		}
		c.Daemon.MaxConns = n
	}
	if v := getenv(common.MissedGraceEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidGrace, common.MissedGraceEnv, v)
		}
		c.MissedGrace = d
	}
	if v := getenv(common.TelegramChatEnv); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", common.TelegramChatEnv, v, err)
		}
		c.Notify.TelegramChat = id
	}
	if v := getenv(common.DesktopNotifyEnv); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", common.DesktopNotifyEnv, v, err)
		}
		c.Notify.Desktop = b
	}
	if getenv(common.DebugEnv) == "1" {
		c.Debug = true
		c.Log.Level = "debug"
	}
	return nil
}

// DSN is the configured store location, or a file in the config
// directory for file-based drivers.
func (c *Config) DSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	switch c.Store.Driver {
	case alarmlib.DriverBolt:
		return filepath.Join(c.ConfigDir, boltFile)
	case alarmlib.DriverSQLite:
		return filepath.Join(c.ConfigDir, sqliteFile)
	}
	return ""
}

// SoundsDir holds imported and downloaded sounds.
func (c *Config) SoundsDir() string {
	return filepath.Join(c.ConfigDir, "sounds")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Daemon.Port < 1 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Daemon.Port)
	}
	switch c.Store.Driver {
	case alarmlib.DriverSQLite, alarmlib.DriverBolt, alarmlib.DriverMemory:
	case alarmlib.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: postgres needs a dsn", ErrInvalidDriver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Store.Driver)
	}
	if c.MissedGrace < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGrace, c.MissedGrace)
	}
	if !gronx.New().IsValid(c.HousekeepingCron) {
		return fmt.Errorf("%w: %q", ErrInvalidCron, c.HousekeepingCron)
	}
	return nil
}
