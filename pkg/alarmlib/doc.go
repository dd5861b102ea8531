// Package alarmlib holds the alarm model of randalarm and the pure pieces of
// the scheduling engine: weekday and time-of-day parsing, the next-window
// resolver, the random instant sampler, the sound catalog and the key/value
// storage the alarm list is persisted through.
//
// Nothing in this package owns a timer. Timers live in internal/scheduler and
// the state machine that drives them lives in internal/engine.
package alarmlib
