//go:build linux

package wakelock

import (
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const (
	logindDest    = "org.freedesktop.login1"
	logindPath    = "/org/freedesktop/login1"
	logindInhibit = "org.freedesktop.login1.Manager.Inhibit"
)

// logind takes inhibitors from systemd-logind. The system bus is dialled
// on first use.
type logind struct {
	conn *dbus.Conn
}

func newInhibitor() inhibitor {
	return &logind{}
}

func (l *logind) Inhibit(what, who, why, mode string) (int, error) {
	if l.conn == nil {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return -1, err
		}
		l.conn = conn
	}
	var fd dbus.UnixFD
	obj := l.conn.Object(logindDest, dbus.ObjectPath(logindPath))
	if err := obj.Call(logindInhibit, 0, what, who, why, mode).Store(&fd); err != nil {
		return -1, err
	}
	return int(fd), nil
}

func (l *logind) Release(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}

func (l *logind) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}
