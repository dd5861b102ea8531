// Package common provides shared types and constants used across the
// randalarm session/daemon communication layer.
package common

// Environment variable names for configuration.
const (
	// ConfigEnv points at the YAML config file.
	ConfigEnv = "RANDALARM_CONFIG"

	// ConfigDirEnv overrides the data and config directory.
	ConfigDirEnv = "RANDALARM_CONFIG_DIR"

	// PortEnv is the daemon port.
	PortEnv = "RANDALARM_PORT"

	// DaemonURIEnv is where sessions and commands reach the daemon.
	DaemonURIEnv = "RANDALARM_DAEMON_URI"

	// MaxConnsEnv caps concurrent daemon connections.
	MaxConnsEnv = "RANDALARM_MAX_CONNS"

	// SecretEnv is the RPC bearer secret.
	SecretEnv = "RANDALARM_RPC_SECRET"

	// StoreDriverEnv selects the storage backend.
	StoreDriverEnv = "RANDALARM_STORE_DRIVER"

	// StoreDSNEnv is the storage data source name.
	StoreDSNEnv = "RANDALARM_STORE_DSN"

	// LogLevelEnv sets the log level.
	LogLevelEnv = "RANDALARM_LOG_LEVEL"

	// LogFormatEnv selects text or json logs.
	LogFormatEnv = "RANDALARM_LOG_FORMAT"

	// PlayerEnv is the audio player command.
	PlayerEnv = "RANDALARM_PLAYER"

	// MissedGraceEnv bounds how late a missed occurrence still rings.
	MissedGraceEnv = "RANDALARM_MISSED_GRACE"

	// HousekeepingEnv is the daemon housekeeping cron expression.
	HousekeepingEnv = "RANDALARM_HOUSEKEEPING_CRON"

	// DesktopNotifyEnv toggles desktop notifications.
	DesktopNotifyEnv = "RANDALARM_NOTIFY_DESKTOP"

	// TelegramTokenEnv is the Telegram bot token.
	TelegramTokenEnv = "RANDALARM_TELEGRAM_TOKEN"

	// TelegramChatEnv is the Telegram chat id notifications go to.
	TelegramChatEnv = "RANDALARM_TELEGRAM_CHAT"

	// DebugEnv enables debug logging.
	DebugEnv = "RANDALARM_DEBUG"
)
