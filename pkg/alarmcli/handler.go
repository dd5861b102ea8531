package alarmcli

import (
	"encoding/json"

	"github.com/randalarm/randalarm/common"
)

// Handler defines the interface for processing daemon pushes.
// Implementations receive the raw JSON params and are responsible for
// unmarshaling them.
type Handler interface {
	Handle(json.RawMessage) error
}

// NewTriggeredHandler creates a handler for ALARM_TRIGGERED pushes.
func NewTriggeredHandler(callback func(*common.AlarmTriggeredParams) error) *TriggeredHandler {
	return &TriggeredHandler{Callback: callback}
}

// TriggeredHandler processes occurrences fired by the daemon.
type TriggeredHandler struct {
	Callback func(*common.AlarmTriggeredParams) error
}

// Handle unmarshals an ALARM_TRIGGERED push and invokes the callback.
func (h *TriggeredHandler) Handle(m json.RawMessage) error {
	var v common.AlarmTriggeredParams
	if err := json.Unmarshal(m, &v); err != nil {
		return err
	}
	return h.Callback(&v)
}

// NewActionHandler creates a handler for NOTIFICATION_ACTION pushes.
// The action parameter filters pushes to that action; pass an empty
// string to receive all of them.
func NewActionHandler(action common.NotificationAction, callback func(*common.NotificationActionParams) error) *ActionHandler {
	return &ActionHandler{
		Action:   action,
		Callback: callback,
	}
}

// ActionHandler processes notification buttons relayed by the daemon.
type ActionHandler struct {
	Action   common.NotificationAction
	Callback func(*common.NotificationActionParams) error
}

// Handle unmarshals a NOTIFICATION_ACTION push, applies the action filter
// and invokes the callback.
func (h *ActionHandler) Handle(m json.RawMessage) error {
	var v common.NotificationActionParams
	if err := json.Unmarshal(m, &v); err != nil {
		return err
	}
	if h.Action != "" && v.Action != h.Action {
		return nil
	}
	return h.Callback(&v)
}
