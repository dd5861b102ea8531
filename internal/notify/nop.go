package notify

import "github.com/randalarm/randalarm/pkg/alarmlib"

// Nop is the notifier used when no backend could be set up.
type Nop struct{}

func (Nop) Available() bool            { return false }
func (Nop) Show(*alarmlib.Alarm) error { return ErrUnavailable }
func (Nop) Close(string) error         { return nil }
func (Nop) Actions() <-chan Action     { return nil }
func (Nop) Shutdown() error            { return nil }
