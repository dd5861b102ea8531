package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/scheduler"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

// DefaultMissedGrace is how late a restored occurrence may still ring.
const DefaultMissedGrace = common.DefaultMissedGrace

// Store persists the alarm list and the custom sound catalog.
type Store interface {
	LoadAlarms() []*alarmlib.Alarm
	SaveAlarms([]*alarmlib.Alarm) error
	LoadSounds() []alarmlib.Sound
	SaveSounds([]alarmlib.Sound) error
}

// Config configures an Engine. Only Store is required.
type Config struct {
	Store Store
	// Foreground is the in-process timer authority. When nil the engine
	// runs its own scheduler bound to the context passed to New.
	Foreground Authority
	Hooks      Hooks
	Clock      Clock
	Rand       *rand.Rand
	Log        logger.Logger
	// MissedGrace bounds how late an occurrence found on Restore may ring.
	MissedGrace time.Duration
	// DeferMissed keeps occurrences missed by more than MissedGrace as
	// they are until SettleMissed, so the background authority can replay
	// a ring it raised while no session was open.
	DeferMissed bool
	// Passive engines only edit. Restore leaves persisted occurrences and
	// ring states alone because a running session or the daemon owns them.
	Passive bool
}

// Engine owns the alarm list and its ring state. It is safe for concurrent
// use.
type Engine struct {
	mu          sync.Mutex
	store       Store
	fg          Authority
	hooks       Hooks
	clock       Clock
	rng         *rand.Rand
	log         logger.Logger
	grace       time.Duration
	deferMissed bool
	passive     bool
	alarms      []*alarmlib.Alarm
	byID        map[string]*alarmlib.Alarm
	sounds      *alarmlib.Catalog
	gate        *ringGate
	// missed holds the occurrences Restore deferred, by alarm id
	missed  map[string]time.Time
	active  bool
	known   bool
	bgOK    bool
	bgKnown bool
}

// New creates an engine. The alarm list stays empty until Restore.
func New(ctx context.Context, cfg Config) *Engine {
	e := &Engine{
		store:       cfg.Store,
		fg:          cfg.Foreground,
		hooks:       cfg.Hooks,
		clock:       cfg.Clock,
		rng:         cfg.Rand,
		log:         cfg.Log,
		grace:       cfg.MissedGrace,
		deferMissed: cfg.DeferMissed,
		passive:     cfg.Passive,
		byID:        make(map[string]*alarmlib.Alarm),
		gate:        newRingGate(),
		missed:      make(map[string]time.Time),
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if e.log == nil {
		e.log = logger.NewNopLogger()
	}
	if e.grace <= 0 {
		e.grace = DefaultMissedGrace
	}
	if e.fg == nil {
		e.fg = scheduler.New(ctx, e.onTimer)
	}
	e.sounds = alarmlib.NewCatalog(nil)
	return e
}

func (e *Engine) onTimer(id string, at time.Time) {
	e.Fire(id, at, SourceForeground)
}

// Restore loads the persisted alarms and sounds and re-establishes the
// schedule. Occurrences missed by less than the grace period ring late,
// older ones are replaced by a fresh occurrence, or held for SettleMissed
// when DeferMissed is set.
func (e *Engine) Restore() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sounds = alarmlib.NewCatalog(e.store.LoadSounds())
	e.missed = make(map[string]time.Time)
	loaded := e.store.LoadAlarms()
	e.alarms = e.alarms[:0]
	e.byID = make(map[string]*alarmlib.Alarm, len(loaded))
	now := e.clock.Now()
	for _, a := range loaded {
		if _, dup := e.byID[a.ID]; dup {
			e.log.Warning("engine: skipping duplicate alarm id %s", a.ID)
			continue
		}
		e.alarms = append(e.alarms, a)
		e.byID[a.ID] = a
		if !e.passive {
			e.restoreOne(a, now)
		}
	}
	e.log.Info("engine: restored %d alarms", len(e.alarms))
	e.known = false
	if e.passive {
		// nothing changed; edits save on their own
		e.emitSchedule()
		return
	}
	e.commit()
}

func (e *Engine) restoreOne(a *alarmlib.Alarm, now time.Time) {
	if !a.IsActive {
		e.idle(a)
		return
	}
	switch {
	case a.State == alarmlib.StateRinging || a.State == alarmlib.StateQueued || a.NextFire == nil:
		e.schedule(a, now)
	case a.NextFire.After(now):
		e.arm(a, *a.NextFire, a.State)
	case now.Sub(*a.NextFire) <= e.grace:
		e.log.Info("engine: alarm %q missed %s by %s, ringing late", a.Name,
			a.NextFire.Format(time.RFC3339), now.Sub(*a.NextFire).Round(time.Second))
		e.arm(a, *a.NextFire, a.State)
	case e.deferMissed:
		e.log.Info("engine: alarm %q missed %s, waiting for a background replay", a.Name,
			a.NextFire.Format(time.RFC3339))
		e.missed[a.ID] = *a.NextFire
	default:
		e.log.Warning("engine: alarm %q missed its occurrence at %s", a.Name,
			a.NextFire.Format(time.RFC3339))
		e.schedule(a, now)
	}
}

// SettleMissed gives every occurrence deferred by Restore that was not
// replayed in the meantime a fresh occurrence. It is a no-op once settled.
func (e *Engine) SettleMissed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.missed) == 0 {
		return
	}
	now := e.clock.Now()
	changed := false
	for id, at := range e.missed {
		delete(e.missed, id)
		a, ok := e.byID[id]
		if !ok || !a.IsActive || !a.FiresAt(at) {
			continue
		}
		e.log.Warning("engine: alarm %q missed its occurrence at %s", a.Name, at.Format(time.RFC3339))
		e.schedule(a, now)
		changed = true
	}
	if changed {
		e.commit()
	}
}

// Missed lists the ids of occurrences deferred by Restore and not settled.
func (e *Engine) Missed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.missed))
	for id := range e.missed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Alarms returns a snapshot of the alarm list in creation order.
func (e *Engine) Alarms() []*alarmlib.Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return alarmlib.CloneAll(e.alarms)
}

// Get returns a copy of the alarm with the given id.
func (e *Engine) Get(id string) (*alarmlib.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	return a.Clone(), nil
}

// Create adds a new active alarm and schedules its first occurrence.
func (e *Engine) Create(s alarmlib.Settings) *alarmlib.Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.SoundFile == "" {
		s.SoundFile = e.sounds.Default().File
	}
	a := alarmlib.NewAlarm(s)
	e.alarms = append(e.alarms, a)
	e.byID[a.ID] = a
	e.schedule(a, e.clock.Now())
	e.commit()
	return a.Clone()
}

// Update replaces the settings of an alarm. Saving an edit activates the
// alarm. A ringing alarm keeps ringing and picks up the new settings when it
// is stopped.
func (e *Engine) Update(id string, s alarmlib.Settings) (*alarmlib.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	if s.SoundFile == "" {
		s.SoundFile = a.SoundFile
	}
	a.Apply(s)
	a.IsActive = true
	if a.State != alarmlib.StateRinging {
		if a.State == alarmlib.StateQueued {
			e.gate.remove(id)
		}
		e.schedule(a, e.clock.Now())
	}
	e.commit()
	return a.Clone(), nil
}

// SetActive activates or deactivates an alarm. It is idempotent.
// Deactivating a ringing alarm leaves it ringing until it is stopped.
func (e *Engine) SetActive(id string, active bool) (*alarmlib.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	e.setActive(a, active)
	e.commit()
	return a.Clone(), nil
}

// Toggle flips the active flag of an alarm.
func (e *Engine) Toggle(id string) (*alarmlib.Alarm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	e.setActive(a, !a.IsActive)
	e.commit()
	return a.Clone(), nil
}

func (e *Engine) setActive(a *alarmlib.Alarm, active bool) {
	if a.IsActive == active {
		return
	}
	a.IsActive = active
	switch {
	case a.State == alarmlib.StateRinging:
		// the ring runs until stopped; stop reschedules or idles
	case active:
		e.schedule(a, e.clock.Now())
	default:
		if a.State == alarmlib.StateQueued {
			e.gate.remove(a.ID)
		}
		e.idle(a)
	}
}

// Delete removes an alarm, ending its ring if it holds the channel.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok {
		return ErrAlarmNotFound
	}
	e.fg.Cancel(id)
	switch a.State {
	case alarmlib.StateRinging:
		e.endRing(id)
	case alarmlib.StateQueued:
		e.gate.remove(id)
	}
	delete(e.byID, id)
	for i, x := range e.alarms {
		if x.ID == id {
			e.alarms = append(e.alarms[:i], e.alarms[i+1:]...)
			break
		}
	}
	e.ringNext()
	e.commit()
	return nil
}

// Fire delivers the occurrence (id, at) reported by src. It rings or queues
// the alarm and reports true only for the first report of an occurrence that
// is still armed. Reports for deleted, inactive or rescheduled alarms are
// ignored.
func (e *Engine) Fire(id string, at time.Time, src Source) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.byID[id]
	if !ok || !a.IsActive {
		return false
	}
	if !a.FiresAt(at) && !e.adopts(id, at, src) {
		return false
	}
	now := e.clock.Now()
	if !e.gate.claim(id, at, now) {
		return false
	}
	delete(e.missed, id)
	e.fg.Cancel(id)
	a.NextFire = nil
	ev := RingEvent{
		AlarmID:   a.ID,
		Name:      a.Name,
		SoundFile: a.SoundFile,
		At:        at,
		Source:    src,
	}
	if e.gate.busy() {
		e.log.Info("engine: alarm %q fired while %s rings, queued", a.Name, e.gate.holder())
		a.State = alarmlib.StateQueued
		e.gate.enqueue(ev)
	} else {
		e.ring(a, ev)
	}
	e.commit()
	return true
}

// adopts reports whether a background report for a later instant replaces
// a deferred occurrence: the daemon moved the alarm on while no session
// was open.
func (e *Engine) adopts(id string, at time.Time, src Source) bool {
	prev, ok := e.missed[id]
	return ok && src == SourceBackground && at.After(prev)
}

// HandleTriggered delivers an ALARM_TRIGGERED report. The alarm carries the
// occurrence instant it was armed for.
func (e *Engine) HandleTriggered(a *alarmlib.Alarm) bool {
	if a == nil || a.NextFire == nil {
		return false
	}
	return e.Fire(a.ID, *a.NextFire, SourceBackground)
}

// HandleAction applies a notification action relayed by the background
// authority.
func (e *Engine) HandleAction(action, alarmID string) error {
	switch action {
	case ActionSnooze:
		return e.SnoozeAlarm(alarmID)
	case ActionStop:
		return e.StopAlarm(alarmID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// Snooze snoozes the alarm holding the ring channel.
func (e *Engine) Snooze() error {
	return e.SnoozeAlarm(e.ringingID())
}

// Stop stops the alarm holding the ring channel.
func (e *Engine) Stop() error {
	return e.StopAlarm(e.ringingID())
}

func (e *Engine) ringingID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.holder()
}

// SnoozeAlarm ends the ring of a ringing or queued alarm and arms it again
// exactly SnoozeInterval from now.
func (e *Engine) SnoozeAlarm(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.pendingRing(id)
	if err != nil {
		return err
	}
	e.dismiss(a)
	if a.IsActive {
		e.arm(a, e.clock.Now().Add(alarmlib.SnoozeInterval), alarmlib.StateSnoozed)
	} else {
		e.idle(a)
	}
	e.ringNext()
	e.commit()
	return nil
}

// StopAlarm ends the ring of a ringing or queued alarm. An active alarm gets
// a fresh occurrence, an inactive one goes idle.
func (e *Engine) StopAlarm(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.pendingRing(id)
	if err != nil {
		return err
	}
	e.dismiss(a)
	if a.IsActive {
		e.schedule(a, e.clock.Now())
	} else {
		e.idle(a)
	}
	e.ringNext()
	e.commit()
	return nil
}

func (e *Engine) pendingRing(id string) (*alarmlib.Alarm, error) {
	if id == "" {
		return nil, ErrNotRinging
	}
	a, ok := e.byID[id]
	if !ok {
		return nil, ErrAlarmNotFound
	}
	if a.State != alarmlib.StateRinging && a.State != alarmlib.StateQueued {
		return nil, ErrNotRinging
	}
	return a, nil
}

func (e *Engine) dismiss(a *alarmlib.Alarm) {
	if a.State == alarmlib.StateRinging {
		e.endRing(a.ID)
		return
	}
	e.gate.remove(a.ID)
}

// Ringing returns the ring holding the channel, if any.
func (e *Engine) Ringing() (RingEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gate.current == nil {
		return RingEvent{}, false
	}
	return *e.gate.current, true
}

// Queued returns the rings waiting for the channel in ring order.
func (e *Engine) Queued() []RingEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.queued()
}

// Delivered reports whether the occurrence (id, at) has been delivered.
func (e *Engine) Delivered(id string, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.delivered(id, at)
}

// Sounds lists the built-in sounds followed by the custom ones.
func (e *Engine) Sounds() []alarmlib.Sound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sounds.Sounds()
}

// AddSound registers a custom sound.
func (e *Engine) AddSound(s alarmlib.Sound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s.Custom = true
	if err := e.sounds.Add(s); err != nil {
		return err
	}
	if err := e.store.SaveSounds(e.sounds.Custom()); err != nil {
		e.log.Error("engine: failed to save sounds: %v", err)
	}
	return nil
}

// RemoveSound removes a custom sound. Alarms using it fall back to the
// default sound.
func (e *Engine) RemoveSound(key string) (alarmlib.Sound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sounds.Remove(key)
	if err != nil {
		return s, err
	}
	if err := e.store.SaveSounds(e.sounds.Custom()); err != nil {
		e.log.Error("engine: failed to save sounds: %v", err)
	}
	def := e.sounds.Default().File
	changed := false
	for _, a := range e.alarms {
		if a.SoundFile == s.File {
			a.SoundFile = def
			changed = true
		}
	}
	if changed {
		e.commit()
	}
	return s, nil
}

// SetBackgroundAvailable records whether the background authority can
// deliver. Losing it is logged once per transition.
func (e *Engine) SetBackgroundAvailable(ok bool, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bgKnown && e.bgOK == ok {
		return
	}
	e.bgKnown = true
	e.bgOK = ok
	if ok {
		e.log.Info("engine: background delivery available")
	} else {
		e.log.Warning("engine: background delivery unavailable (%s); alarms ring only while this session runs", reason)
	}
	if e.hooks.OnBackgroundChanged != nil {
		e.hooks.OnBackgroundChanged(ok, reason)
	}
}

// BackgroundAvailable reports the last state given to
// SetBackgroundAvailable.
func (e *Engine) BackgroundAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bgOK
}

// Resync hands the current snapshot to OnScheduleUpdated again, for a
// background authority that just (re)connected.
func (e *Engine) Resync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitSchedule()
}

// schedule samples a fresh occurrence for a and arms it. An alarm without
// an eligible day goes idle.
func (e *Engine) schedule(a *alarmlib.Alarm, now time.Time) {
	at, ok := alarmlib.NextOccurrence(a, now, e.rng)
	if !ok {
		e.log.Warning("engine: alarm %q has no days selected, not scheduled", a.Name)
		e.idle(a)
		return
	}
	e.arm(a, at, alarmlib.StateArmed)
}

func (e *Engine) arm(a *alarmlib.Alarm, at time.Time, st alarmlib.State) {
	if st != alarmlib.StateSnoozed {
		st = alarmlib.StateArmed
	}
	delete(e.missed, a.ID)
	a.NextFire = &at
	a.State = st
	e.fg.Arm(a.ID, at)
}

func (e *Engine) idle(a *alarmlib.Alarm) {
	delete(e.missed, a.ID)
	e.fg.Cancel(a.ID)
	a.NextFire = nil
	a.State = alarmlib.StateIdle
}

func (e *Engine) ring(a *alarmlib.Alarm, ev RingEvent) {
	a.State = alarmlib.StateRinging
	e.gate.take(ev)
	e.log.Info("engine: alarm %q ringing (%s, %s)", a.Name, ev.At.Format(time.RFC3339), ev.Source)
	if e.hooks.OnRing != nil {
		e.hooks.OnRing(ev)
	}
}

func (e *Engine) endRing(id string) {
	if e.gate.holder() != id {
		return
	}
	e.gate.release()
	if e.hooks.OnStopRing != nil {
		e.hooks.OnStopRing(id)
	}
}

// ringNext hands a free ring channel to the earliest queued occurrence.
func (e *Engine) ringNext() {
	for !e.gate.busy() {
		ev, ok := e.gate.pop()
		if !ok {
			return
		}
		a, ok := e.byID[ev.AlarmID]
		if !ok || a.State != alarmlib.StateQueued {
			continue
		}
		ev.Name = a.Name
		ev.SoundFile = a.SoundFile
		e.ring(a, ev)
	}
}

// commit persists the list and publishes the change.
func (e *Engine) commit() {
	if err := e.store.SaveAlarms(e.alarms); err != nil {
		e.log.Error("engine: failed to save alarms: %v", err)
	}
	e.emitSchedule()
	active := false
	for _, a := range e.alarms {
		if a.IsActive {
			active = true
			break
		}
	}
	if e.known && active == e.active {
		return
	}
	e.known = true
	e.active = active
	if e.hooks.OnActiveChanged != nil {
		e.hooks.OnActiveChanged(active)
	}
}

func (e *Engine) emitSchedule() {
	if e.hooks.OnScheduleUpdated != nil {
		e.hooks.OnScheduleUpdated(alarmlib.CloneAll(e.alarms))
	}
}
