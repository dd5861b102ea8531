package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

const (
	notifDest  = "org.freedesktop.Notifications"
	notifPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifIface = "org.freedesktop.Notifications"

	sigActionInvoked = notifIface + ".ActionInvoked"
	sigClosed        = notifIface + ".NotificationClosed"

	urgencyCritical = byte(2)
)

// caller is the part of dbus.BusObject the backend uses.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Desktop shows notifications through the freedesktop notification
// service on the session bus.
type Desktop struct {
	conn    *dbus.Conn
	obj     caller
	log     logger.Logger
	mu      sync.Mutex
	ids     map[string]uint32
	alarms  map[uint32]string
	actions chan Action
	signals chan *dbus.Signal
	done    chan struct{}
	once    sync.Once
}

// NewDesktop connects to the session bus and subscribes to notification
// signals.
func NewDesktop(l logger.Logger) (*Desktop, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: session bus: %v", ErrUnavailable, err)
	}
	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notifPath),
		dbus.WithMatchInterface(notifIface),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe notification signals: %w", err)
	}
	d := newDesktop(conn.Object(notifDest, notifPath), l)
	d.conn = conn
	conn.Signal(d.signals)
	go d.loop()
	return d, nil
}

func newDesktop(obj caller, l logger.Logger) *Desktop {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Desktop{
		obj:     obj,
		log:     l,
		ids:     make(map[string]uint32),
		alarms:  make(map[uint32]string),
		actions: make(chan Action, 16),
		signals: make(chan *dbus.Signal, 16),
		done:    make(chan struct{}),
	}
}

func (d *Desktop) Available() bool { return true }

func (d *Desktop) Show(a *alarmlib.Alarm) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	actions := []string{
		string(common.ActionSnooze), SnoozeLabel,
		string(common.ActionStop), StopLabel,
	}
	hints := map[string]dbus.Variant{
		"urgency":         dbus.MakeVariant(urgencyCritical),
		"resident":        dbus.MakeVariant(true),
		"category":        dbus.MakeVariant("x-randalarm.alarm"),
		"x-randalarm-tag": dbus.MakeVariant(Tag(a.ID)),
	}
	var id uint32
	err := d.obj.Call(notifIface+".Notify", 0,
		"randalarm", d.ids[a.ID], "alarm-clock", Title, Body(a),
		actions, hints, int32(0),
	).Store(&id)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if old, ok := d.ids[a.ID]; ok && old != id {
		delete(d.alarms, old)
	}
	d.ids[a.ID] = id
	d.alarms[id] = a.ID
	return nil
}

func (d *Desktop) Close(alarmID string) error {
	d.mu.Lock()
	id, ok := d.ids[alarmID]
	if ok {
		delete(d.ids, alarmID)
		delete(d.alarms, id)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}
	if call := d.obj.Call(notifIface+".CloseNotification", 0, id); call.Err != nil {
		return fmt.Errorf("close notification: %w", call.Err)
	}
	return nil
}

func (d *Desktop) Actions() <-chan Action { return d.actions }

func (d *Desktop) Shutdown() error {
	d.once.Do(func() { close(d.done) })
	if d.conn == nil {
		return nil
	}
	d.conn.RemoveSignal(d.signals)
	return d.conn.Close()
}

func (d *Desktop) loop() {
	for {
		select {
		case <-d.done:
			return
		case sig, ok := <-d.signals:
			if !ok {
				return
			}
			d.handleSignal(sig)
		}
	}
}

func (d *Desktop) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	switch sig.Name {
	case sigActionInvoked:
		key, _ := sig.Body[1].(string)
		action, ok := parseAction(key)
		if !ok {
			d.log.Warning("notify: ignoring unknown desktop action %q", key)
			return
		}
		d.mu.Lock()
		alarmID, ok := d.alarms[id]
		d.mu.Unlock()
		if !ok {
			return
		}
		select {
		case d.actions <- Action{Action: action, AlarmID: alarmID}:
		case <-d.done:
		}
	case sigClosed:
		d.mu.Lock()
		if alarmID, ok := d.alarms[id]; ok {
			delete(d.alarms, id)
			delete(d.ids, alarmID)
		}
		d.mu.Unlock()
	}
}
