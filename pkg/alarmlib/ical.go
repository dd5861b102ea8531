package alarmlib

import (
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const icalProductID = "-//randalarm//randalarm//EN"

// floating date-time, interpreted in the reader's local time like the alarm
// itself
const icalFloating = "20060102T150405"

var rruleDays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// WriteICal encodes the active alarms as a calendar. Each alarm becomes a
// weekly recurring event spanning its window, starting on its first
// eligible day at or after now. Alarms without days are skipped.
func WriteICal(w io.Writer, alarms []*Alarm, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)

	for _, a := range alarms {
		if !a.IsActive || a.DaysOfWeek.Empty() {
			continue
		}
		day, _ := nextEligibleDay(startOfDay(now), a.DaysOfWeek)
		win := anchor(day, a.StartTime, a.EndTime)

		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, a.ID+"@randalarm")
		ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		ev.Props.Set(floatingProp(ical.PropDateTimeStart, win.Start))
		ev.Props.Set(floatingProp(ical.PropDateTimeEnd, win.End))
		ev.Props.SetText(ical.PropSummary, a.Name)
		ev.Props.SetText(ical.PropDescription, "Rings once at a random time in this window.")

		byday := make([]rrule.Weekday, 0, 7)
		for _, d := range a.DaysOfWeek.Days() {
			byday = append(byday, rruleDays[d])
		}
		ev.Props.SetRecurrenceRule(&rrule.ROption{Freq: rrule.WEEKLY, Byweekday: byday})

		cal.Children = append(cal.Children, ev.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

func floatingProp(name string, t time.Time) *ical.Prop {
	p := ical.NewProp(name)
	p.SetValueType(ical.ValueDateTime)
	p.Value = t.Format(icalFloating)
	return p
}
