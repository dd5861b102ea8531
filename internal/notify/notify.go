// Package notify raises interactive alarm notifications and reports the
// button the user pressed.
package notify

import (
	"errors"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

var ErrUnavailable = errors.New("notification backend unavailable")

const (
	// Title heads every alarm notification.
	Title = "Alarm Ringing!"
	// SnoozeLabel and StopLabel caption the two action buttons.
	SnoozeLabel = "Snooze 5min"
	StopLabel   = "Stop"
)

// Action is a button press on an alarm notification.
type Action struct {
	Action  common.NotificationAction
	AlarmID string
}

// Notifier shows one notification per alarm. Showing an alarm that already
// has a notification replaces it.
type Notifier interface {
	Available() bool
	Show(a *alarmlib.Alarm) error
	Close(alarmID string) error
	// Actions delivers button presses. It is never closed while the
	// notifier is in use.
	Actions() <-chan Action
	Shutdown() error
}

// Tag is the notification tag of an alarm.
func Tag(alarmID string) string {
	return "alarm-" + alarmID
}

// Body is the notification text of an alarm.
func Body(a *alarmlib.Alarm) string {
	return a.Name + " - Time to wake up!"
}

func parseAction(s string) (common.NotificationAction, bool) {
	switch a := common.NotificationAction(s); a {
	case common.ActionSnooze, common.ActionStop:
		return a, true
	}
	return "", false
}
