package common

import "time"

// UpdateType names a message on the wire between a session and the daemon.
type UpdateType string

const (
	// UPDATE_ALARMS carries the full alarm snapshot from a session.
	UPDATE_ALARMS UpdateType = "UPDATE_ALARMS"
	// ALARM_TRIGGERED reports an occurrence fired by the daemon.
	ALARM_TRIGGERED UpdateType = "ALARM_TRIGGERED"
	// NOTIFICATION_ACTION relays a button pressed on a notification.
	NOTIFICATION_ACTION UpdateType = "NOTIFICATION_ACTION"
)

// NotificationAction is the action id of a notification button.
type NotificationAction string

const (
	ActionSnooze NotificationAction = "snooze"
	ActionStop   NotificationAction = "stop"
)

const (
	// LoopbackHost is the only interface the daemon binds.
	LoopbackHost = "127.0.0.1"
	// DefaultPort is the loopback port the daemon listens on.
	DefaultPort = 7821
	// DefaultMaxConns caps concurrent connections to the daemon.
	DefaultMaxConns = 16
	// WSPath is the JSON-RPC WebSocket endpoint.
	WSPath = "/jsonrpc/ws"
	// HealthPath answers plain HTTP liveness probes.
	HealthPath = "/health"
	// DefaultHousekeepingCron prunes the delivery ledger hourly.
	DefaultHousekeepingCron = "0 * * * *"
	// DefaultMissedGrace is how late a missed occurrence still rings.
	DefaultMissedGrace = 10 * time.Minute
)
