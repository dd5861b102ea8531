package common

import "github.com/randalarm/randalarm/pkg/alarmlib"

// UpdateAlarmsParams is the UPDATE_ALARMS payload.
type UpdateAlarmsParams struct {
	Alarms []*alarmlib.Alarm `json:"alarms"`
}

// AlarmTriggeredParams is the ALARM_TRIGGERED payload. The alarm's
// nextAlarmTime is the occurrence instant that fired.
type AlarmTriggeredParams struct {
	Alarm *alarmlib.Alarm `json:"alarm"`
}

// NotificationActionParams is the NOTIFICATION_ACTION payload.
type NotificationActionParams struct {
	Action  NotificationAction `json:"action"`
	AlarmID string             `json:"alarmId"`
}

// EmptyResult is the result of calls that return no data.
type EmptyResult struct{}

// HealthResponse is the body served on HealthPath.
type HealthResponse struct {
	Status string `json:"status"`
}
