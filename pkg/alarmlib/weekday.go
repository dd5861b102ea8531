package alarmlib

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a bitmask indexed by
// time.Weekday. The zero value is the empty set.
type WeekdaySet uint8

const (
	Weekdays WeekdaySet = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday |
		1<<time.Thursday | 1<<time.Friday
	Weekends WeekdaySet = 1<<time.Saturday | 1<<time.Sunday
	Everyday            = Weekdays | Weekends
)

// displayOrder lists weekdays monday first, the order tags are written in.
var displayOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var weekdayTags = map[string]WeekdaySet{
	"sunday": 1 << time.Sunday, "sun": 1 << time.Sunday,
	"monday": 1 << time.Monday, "mon": 1 << time.Monday,
	"tuesday": 1 << time.Tuesday, "tue": 1 << time.Tuesday,
	"wednesday": 1 << time.Wednesday, "wed": 1 << time.Wednesday,
	"thursday": 1 << time.Thursday, "thu": 1 << time.Thursday,
	"friday": 1 << time.Friday, "fri": 1 << time.Friday,
	"saturday": 1 << time.Saturday, "sat": 1 << time.Saturday,
	"weekdays": Weekdays,
	"weekends": Weekends,
	"daily":    Everyday,
}

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << d
	}
	return s
}

// ParseWeekdays parses weekday tags. Tags are case-insensitive full names
// ("monday"), three-letter abbreviations ("mon") or one of the shorthands
// "weekdays", "weekends" and "daily".
func ParseWeekdays(tags []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		v, ok := weekdayTags[tag]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, tag)
		}
		s |= v
	}
	return s, nil
}

// ParseWeekdayList parses a comma separated list of tags. "none" yields the
// empty set.
func ParseWeekdayList(list string) (WeekdaySet, error) {
	if strings.EqualFold(strings.TrimSpace(list), "none") {
		return 0, nil
	}
	return ParseWeekdays(strings.Split(list, ","))
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<d) != 0
}

func (s WeekdaySet) Empty() bool {
	return s&Everyday == 0
}

// Days returns the members of s, monday first.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for _, d := range displayOrder {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Tags returns the lowercase full weekday names of s, monday first.
func (s WeekdaySet) Tags() []string {
	tags := make([]string, 0, 7)
	for _, d := range s.Days() {
		tags = append(tags, strings.ToLower(d.String()))
	}
	return tags
}

func (s WeekdaySet) String() string {
	switch s & Everyday {
	case 0:
		return "never"
	case Everyday:
		return "daily"
	case Weekdays:
		return "weekdays"
	case Weekends:
		return "weekends"
	}
	short := make([]string, 0, 7)
	for _, d := range s.Days() {
		short = append(short, d.String()[:3])
	}
	return strings.Join(short, ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tags())
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var tags []string
	if err := json.Unmarshal(b, &tags); err != nil {
		return err
	}
	v, err := ParseWeekdays(tags)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
