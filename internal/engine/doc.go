// Package engine is the foreground side of randalarm: the owner of the
// alarm list, the per-alarm ring state machine and the delivery gate that
// makes a ring happen once per occurrence no matter which timer authority
// reports it first.
//
// Every mutation of the alarm list goes through an Engine method. After each
// one the engine persists the list, re-arms its foreground authority and
// hands a full snapshot to OnScheduleUpdated so the background authority can
// replace its own schedule.
package engine
