package engine

import (
	"errors"
	"time"

	"github.com/randalarm/randalarm/pkg/alarmlib"
)

var (
	ErrAlarmNotFound = errors.New("alarm not found")
	ErrNotRinging    = errors.New("alarm is not ringing")
	ErrUnknownAction = errors.New("unknown notification action")
)

// Notification actions relayed from the background authority.
const (
	ActionSnooze = "snooze"
	ActionStop   = "stop"
)

// Source names the timer authority that reported an occurrence.
type Source string

const (
	SourceForeground Source = "foreground"
	SourceBackground Source = "background"
)

// Authority is a timer authority holding at most one timer per alarm id.
// Arm replaces any timer already armed for the id.
type Authority interface {
	Arm(id string, at time.Time)
	Cancel(id string)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RingEvent describes one ring: which alarm, and the occurrence instant that
// fired.
type RingEvent struct {
	AlarmID   string
	Name      string
	SoundFile string
	At        time.Time
	Source    Source
}

// Hooks are the engine's outbound notifications. They are invoked while the
// engine lock is held, in the order the changes happened, and must not call
// back into the Engine. Any hook may be nil.
type Hooks struct {
	// OnRing fires when an alarm takes the ring channel.
	OnRing func(RingEvent)
	// OnStopRing fires when the current ring ends (stop, snooze or delete).
	// Playback must be reset, not paused.
	OnStopRing func(alarmID string)
	// OnScheduleUpdated receives a full snapshot after every change.
	OnScheduleUpdated func(alarms []*alarmlib.Alarm)
	// OnActiveChanged fires when "at least one alarm is active" flips, and
	// once after Restore.
	OnActiveChanged func(active bool)
	// OnBackgroundChanged fires when background delivery becomes available
	// or is lost.
	OnBackgroundChanged func(available bool, reason string)
}
