package alarmlib

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// State is the ring state of an alarm.
type State string

const (
	// StateIdle means there is no pending or active ring.
	StateIdle State = "idle"
	// StateArmed means a future occurrence is scheduled.
	StateArmed State = "armed"
	// StateRinging means an occurrence fired and holds the ring channel.
	StateRinging State = "ringing"
	// StateSnoozed means the ring was dismissed with snooze and a timer is
	// armed exactly SnoozeInterval out.
	StateSnoozed State = "snoozed"
	// StateQueued means an occurrence fired while another alarm held the
	// ring channel. It rings once the channel frees.
	StateQueued State = "queued"
)

// SnoozeInterval is how far out a snoozed alarm rings again.
const SnoozeInterval = 5 * time.Minute

var (
	DefaultStartTime = TimeOfDay{Hour: 7}
	DefaultEndTime   = TimeOfDay{Hour: 9}
	DefaultDays      = Weekdays
)

// Alarm is one configured alarm. The JSON form is the persisted and wire
// representation.
type Alarm struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartTime  TimeOfDay  `json:"startTime"`
	EndTime    TimeOfDay  `json:"endTime"`
	SoundFile  string     `json:"soundFile"`
	IsActive   bool       `json:"isActive"`
	DaysOfWeek WeekdaySet `json:"daysOfWeek"`
	// NextFire is set only while the alarm is active and a timer is armed
	// for it.
	NextFire *time.Time `json:"nextAlarmTime,omitempty"`
	State    State      `json:"state,omitempty"`
}

// Settings are the user editable fields of an alarm.
type Settings struct {
	Name       string
	StartTime  TimeOfDay
	EndTime    TimeOfDay
	SoundFile  string
	DaysOfWeek WeekdaySet
}

// DefaultSettings returns the settings a new alarm starts from.
func DefaultSettings(sound string) Settings {
	return Settings{
		StartTime:  DefaultStartTime,
		EndTime:    DefaultEndTime,
		SoundFile:  sound,
		DaysOfWeek: DefaultDays,
	}
}

// DefaultName is the name given to an alarm saved without one.
func DefaultName(start, end TimeOfDay) string {
	return fmt.Sprintf("Alarm %s-%s", start, end)
}

// NewAlarm creates an active alarm with a fresh id. Nothing is scheduled.
func NewAlarm(s Settings) *Alarm {
	a := &Alarm{
		ID:       uuid.NewString(),
		IsActive: true,
		State:    StateIdle,
	}
	a.Apply(s)
	return a
}

// Apply copies s onto the alarm, defaulting a blank name.
func (a *Alarm) Apply(s Settings) {
	a.Name = strings.TrimSpace(s.Name)
	if a.Name == "" {
		a.Name = DefaultName(s.StartTime, s.EndTime)
	}
	a.StartTime = s.StartTime
	a.EndTime = s.EndTime
	a.SoundFile = s.SoundFile
	a.DaysOfWeek = s.DaysOfWeek
}

func (a *Alarm) Settings() Settings {
	return Settings{
		Name:       a.Name,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		SoundFile:  a.SoundFile,
		DaysOfWeek: a.DaysOfWeek,
	}
}

// Window resolves the next eligible window of the alarm relative to now.
func (a *Alarm) Window(now time.Time) (Window, bool) {
	return Resolve(now, a.StartTime, a.EndTime, a.DaysOfWeek)
}

// FiresAt reports whether the alarm's armed occurrence is at t.
func (a *Alarm) FiresAt(t time.Time) bool {
	return a.NextFire != nil && a.NextFire.Equal(t)
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (a *Alarm) Clone() *Alarm {
	c := *a
	if a.NextFire != nil {
		t := *a.NextFire
		c.NextFire = &t
	}
	return &c
}

// CloneAll deep copies a list of alarms.
func CloneAll(alarms []*Alarm) []*Alarm {
	out := make([]*Alarm, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, a.Clone())
	}
	return out
}
