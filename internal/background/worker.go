// Package background is the daemon side of alarm delivery. It keeps a
// replica of the last snapshot a session pushed, fires its own timers, shows
// notifications and relays rings and button presses to connected sessions.
package background

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/notify"
	"github.com/randalarm/randalarm/internal/scheduler"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

const (
	// HousekeepingID is the timer id of the ledger pruning job.
	HousekeepingID = "randalarm:housekeeping"
	// DeliveredRetention bounds how long delivered occurrences are kept.
	DeliveredRetention = 48 * time.Hour
	// SessionGrace is how long a connected session has to pick up a ring
	// before the daemon shows its own notification.
	SessionGrace = 30 * time.Second

	noticePrefix = "randalarm:notice:"
)

// Timers is the daemon's timer authority.
type Timers interface {
	Arm(id string, at time.Time)
	ArmCron(id, expr string) error
	Cancel(id string)
}

// Hub broadcasts pushes to every connected session.
type Hub interface {
	Broadcast(method string, params any)
	Count() int
}

// Pusher sends a push to one session.
type Pusher interface {
	Notify(ctx context.Context, method string, params any) error
}

type Config struct {
	Notifier notify.Notifier
	Hub      Hub
	// Timers defaults to a scheduler bound to the worker's context.
	Timers Timers
	Log    logger.Logger
	Now    func() time.Time
	Rand   *rand.Rand
	// Housekeeping is the cron expression of the ledger pruning job.
	Housekeeping string
	// MissedGrace bounds how late a snapshot occurrence may still ring.
	MissedGrace time.Duration
}

// episode is one delivered occurrence that no session has resolved yet.
type episode struct {
	alarm  *alarmlib.Alarm
	at     time.Time
	action common.NotificationAction
	shown  bool
}

type push struct {
	method string
	params any
}

// Worker is the background authority. It is safe for concurrent use.
type Worker struct {
	mu        sync.Mutex
	ctx       context.Context
	timers    Timers
	notifier  notify.Notifier
	hub       Hub
	log       logger.Logger
	now       func() time.Time
	rng       *rand.Rand
	grace     time.Duration
	alarms    map[string]*alarmlib.Alarm
	delivered map[string]time.Time
	episodes  map[string]*episode
}

// New starts a worker. It stops listening for notification actions when ctx
// is done.
func New(ctx context.Context, cfg Config) (*Worker, error) {
	w := &Worker{
		ctx:       ctx,
		timers:    cfg.Timers,
		notifier:  cfg.Notifier,
		hub:       cfg.Hub,
		log:       cfg.Log,
		now:       cfg.Now,
		rng:       cfg.Rand,
		grace:     cfg.MissedGrace,
		alarms:    make(map[string]*alarmlib.Alarm),
		delivered: make(map[string]time.Time),
		episodes:  make(map[string]*episode),
	}
	if w.log == nil {
		w.log = logger.NewNopLogger()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.grace <= 0 {
		w.grace = common.DefaultMissedGrace
	}
	if w.notifier == nil {
		w.notifier = notify.Nop{}
	}
	if w.timers == nil {
		w.timers = scheduler.New(ctx, w.onTimer)
	}
	expr := cfg.Housekeeping
	if expr == "" {
		expr = common.DefaultHousekeepingCron
	}
	if err := w.timers.ArmCron(HousekeepingID, expr); err != nil {
		return nil, err
	}
	if !w.notifier.Available() {
		w.log.Warning("background: no notification backend available; alarms ring only in connected sessions")
	}
	go w.listen(w.notifier.Actions())
	return w, nil
}

func (w *Worker) listen(actions <-chan notify.Action) {
	for {
		select {
		case <-w.ctx.Done():
			return
		case act, ok := <-actions:
			if !ok {
				return
			}
			w.HandleAction(act)
		}
	}
}

func deliveryKey(id string, at time.Time) string {
	return id + "|" + at.UTC().Format(time.RFC3339Nano)
}

// UpdateAlarms replaces the replica with a session snapshot and re-arms the
// timers to match it.
func (w *Worker) UpdateAlarms(alarms []*alarmlib.Alarm) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[string]*alarmlib.Alarm, len(alarms))
	for _, a := range alarms {
		if a == nil || a.ID == "" {
			continue
		}
		next[a.ID] = a.Clone()
	}
	for id := range w.alarms {
		if _, ok := next[id]; !ok {
			w.timers.Cancel(id)
		}
	}
	now := w.now()
	armed := 0
	for id, a := range next {
		if !a.IsActive || a.NextFire == nil || w.isDelivered(id, *a.NextFire) {
			w.timers.Cancel(id)
			continue
		}
		if now.Sub(*a.NextFire) > w.grace && !w.holds(id, *a.NextFire) {
			// nobody was armed for it; ringing it now would be too late
			at, ok := alarmlib.NextOccurrence(a, now, w.rng)
			if !ok {
				w.timers.Cancel(id)
				continue
			}
			w.log.Info("background: alarm %q missed %s, next at %s", a.Name,
				a.NextFire.Format(time.RFC3339), at.Format(time.RFC3339))
			a.NextFire = &at
			a.State = alarmlib.StateArmed
		}
		w.timers.Arm(id, *a.NextFire)
		armed++
	}
	w.alarms = next
	for id, ep := range w.episodes {
		if moved(ep, next[id]) {
			w.resolve(id)
		}
	}
	w.log.Info("background: replica updated, %d alarms, %d armed", len(next), armed)
}

// moved reports whether the session has handled the episode's occurrence.
func moved(ep *episode, a *alarmlib.Alarm) bool {
	if a == nil || !a.IsActive {
		return true
	}
	if a.State == alarmlib.StateRinging || a.State == alarmlib.StateQueued {
		return false
	}
	return !a.FiresAt(ep.at)
}

func (w *Worker) resolve(id string) {
	delete(w.episodes, id)
	w.timers.Cancel(noticePrefix + id)
	if err := w.notifier.Close(id); err != nil {
		w.log.Warning("background: close notification for %s: %v", id, err)
	}
}

// holds reports whether an unresolved episode is ringing the occurrence.
func (w *Worker) holds(id string, at time.Time) bool {
	ep, ok := w.episodes[id]
	return ok && ep.at.Equal(at)
}

func (w *Worker) isDelivered(id string, at time.Time) bool {
	_, ok := w.delivered[deliveryKey(id, at)]
	return ok
}

func (w *Worker) onTimer(id string, at time.Time) {
	if id == HousekeepingID {
		w.Housekeep()
		return
	}
	if alarmID, ok := strings.CutPrefix(id, noticePrefix); ok {
		w.showLate(alarmID)
		return
	}
	if p, ok := w.trigger(id, at); ok {
		w.broadcast(p)
	}
}

func (w *Worker) trigger(id string, at time.Time) (push, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.alarms[id]
	if !ok || !a.IsActive || !a.FiresAt(at) {
		return push{}, false
	}
	if a.State == alarmlib.StateRinging || w.isDelivered(id, at) {
		return push{}, false
	}
	w.delivered[deliveryKey(id, at)] = w.now()
	snap := a.Clone()
	ep := &episode{alarm: snap, at: at}
	w.episodes[id] = ep
	if w.sessions() > 0 {
		w.timers.Arm(noticePrefix+id, w.now().Add(SessionGrace))
	} else {
		w.show(ep)
	}
	w.log.Info("background: alarm %q fired at %s", a.Name, at.Format(time.RFC3339))
	return push{
		method: string(common.ALARM_TRIGGERED),
		params: &common.AlarmTriggeredParams{Alarm: snap.Clone()},
	}, true
}

func (w *Worker) show(ep *episode) {
	ep.shown = true
	if err := w.notifier.Show(ep.alarm); err != nil && w.notifier.Available() {
		w.log.Error("background: show notification for %q: %v", ep.alarm.Name, err)
	}
}

// showLate raises the notification for an episode the connected sessions
// did not start ringing within SessionGrace.
func (w *Worker) showLate(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ep, ok := w.episodes[id]
	if !ok || ep.shown {
		return
	}
	if a := w.alarms[id]; a != nil && a.State == alarmlib.StateRinging && w.sessions() > 0 {
		return
	}
	w.show(ep)
}

// HandleAction applies a notification button press. It is relayed to the
// connected sessions, or kept on the episode until one connects.
func (w *Worker) HandleAction(act notify.Action) {
	w.mu.Lock()
	if err := w.notifier.Close(act.AlarmID); err != nil {
		w.log.Warning("background: close notification for %s: %v", act.AlarmID, err)
	}
	ep, ok := w.episodes[act.AlarmID]
	if ok {
		ep.action = act.Action
	}
	live := w.sessions() > 0
	if !live && ok {
		w.actLocally(act)
	}
	w.mu.Unlock()

	if !ok {
		w.log.Warning("background: %s for %s without an open episode", act.Action, act.AlarmID)
	}
	if live {
		w.broadcast(push{
			method: string(common.NOTIFICATION_ACTION),
			params: &common.NotificationActionParams{Action: act.Action, AlarmID: act.AlarmID},
		})
	}
}

// actLocally keeps the alarm going while no session is connected.
func (w *Worker) actLocally(act notify.Action) {
	a, ok := w.alarms[act.AlarmID]
	if !ok {
		return
	}
	now := w.now()
	switch act.Action {
	case common.ActionSnooze:
		at := now.Add(alarmlib.SnoozeInterval)
		a.NextFire = &at
		a.State = alarmlib.StateSnoozed
		w.timers.Arm(a.ID, at)
		w.log.Info("background: alarm %q snoozed until %s", a.Name, at.Format(time.Kitchen))
	case common.ActionStop:
		next, ok := alarmlib.NextOccurrence(a, now, w.rng)
		if !a.IsActive || !ok {
			a.NextFire = nil
			a.State = alarmlib.StateIdle
			w.timers.Cancel(a.ID)
			return
		}
		a.NextFire = &next
		a.State = alarmlib.StateArmed
		w.timers.Arm(a.ID, next)
	}
}

// Replay sends every unresolved episode to a session that just connected:
// the original ring followed by the pending button press, if any.
func (w *Worker) Replay(p Pusher) {
	w.mu.Lock()
	eps := make([]*episode, 0, len(w.episodes))
	for _, ep := range w.episodes {
		eps = append(eps, &episode{alarm: ep.alarm.Clone(), at: ep.at, action: ep.action})
	}
	w.mu.Unlock()
	sort.Slice(eps, func(i, j int) bool { return eps[i].at.Before(eps[j].at) })

	for _, ep := range eps {
		err := p.Notify(w.ctx, string(common.ALARM_TRIGGERED), &common.AlarmTriggeredParams{Alarm: ep.alarm})
		if err != nil {
			w.log.Warning("background: replay to session failed: %v", err)
			return
		}
		if ep.action == "" {
			continue
		}
		err = p.Notify(w.ctx, string(common.NOTIFICATION_ACTION), &common.NotificationActionParams{
			Action:  ep.action,
			AlarmID: ep.alarm.ID,
		})
		if err != nil {
			w.log.Warning("background: replay to session failed: %v", err)
			return
		}
	}
	if len(eps) > 0 {
		w.log.Info("background: replayed %d episodes", len(eps))
	}
}

// Housekeep drops delivered occurrences older than DeliveredRetention.
func (w *Worker) Housekeep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	n := 0
	for k, t := range w.delivered {
		if now.Sub(t) > DeliveredRetention {
			delete(w.delivered, k)
			n++
		}
	}
	if n > 0 {
		w.log.Info("background: pruned %d delivered occurrences", n)
	}
}

// Alarms returns a copy of the replica.
func (w *Worker) Alarms() []*alarmlib.Alarm {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*alarmlib.Alarm, 0, len(w.alarms))
	for _, a := range w.alarms {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pending returns the ids of alarms with an unresolved episode.
func (w *Worker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.episodes))
	for id := range w.episodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *Worker) sessions() int {
	if w.hub == nil {
		return 0
	}
	return w.hub.Count()
}

func (w *Worker) broadcast(p push) {
	if w.hub == nil || w.hub.Count() == 0 {
		return
	}
	w.hub.Broadcast(p.method, p.params)
}
