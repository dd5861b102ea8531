package background

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/notify"
	"github.com/randalarm/randalarm/internal/scheduler"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

type fakeTimers struct {
	mu    sync.Mutex
	armed map[string]time.Time
	crons map[string]string
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{armed: map[string]time.Time{}, crons: map[string]string{}}
}

func (f *fakeTimers) Arm(id string, at time.Time) {
	f.mu.Lock()
	f.armed[id] = at
	f.mu.Unlock()
}

func (f *fakeTimers) ArmCron(id, expr string) error {
	if err := scheduler.ValidateCron(expr); err != nil {
		return err
	}
	f.mu.Lock()
	f.crons[id] = expr
	f.mu.Unlock()
	return nil
}

func (f *fakeTimers) Cancel(id string) {
	f.mu.Lock()
	delete(f.armed, id)
	f.mu.Unlock()
}

func (f *fakeTimers) at(id string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.armed[id]
	return t, ok
}

type sent struct {
	method string
	params any
}

type fakeHub struct {
	mu    sync.Mutex
	count int
	sent  []sent
}

func (h *fakeHub) Broadcast(method string, params any) {
	h.mu.Lock()
	h.sent = append(h.sent, sent{method, params})
	h.mu.Unlock()
}

func (h *fakeHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *fakeHub) all() []sent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sent(nil), h.sent...)
}

type fakePusher struct {
	sent []sent
	err  error
}

func (p *fakePusher) Notify(_ context.Context, method string, params any) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sent{method, params})
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	avail   bool
	shown   []string
	closed  []string
	actions chan notify.Action
}

func (f *fakeNotifier) Available() bool { return f.avail }
func (f *fakeNotifier) Show(a *alarmlib.Alarm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, a.ID)
	return nil
}
func (f *fakeNotifier) Close(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return nil
}
func (f *fakeNotifier) Actions() <-chan notify.Action { return f.actions }
func (f *fakeNotifier) Shutdown() error               { return nil }

func (f *fakeNotifier) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shown), len(f.closed)
}

type harness struct {
	w      *Worker
	timers *fakeTimers
	hub    *fakeHub
	notif  *fakeNotifier
	log    *logger.MockLogger
	now    time.Time
}

// Tuesday 2024-01-02 07:10 UTC
var base = time.Date(2024, time.January, 2, 7, 10, 0, 0, time.UTC)

func newHarness(t *testing.T, avail bool) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := &harness{
		timers: newFakeTimers(),
		hub:    &fakeHub{},
		notif:  &fakeNotifier{avail: avail, actions: make(chan notify.Action)},
		log:    logger.NewMockLogger(),
		now:    base,
	}
	w, err := New(ctx, Config{
		Notifier: h.notif,
		Hub:      h.hub,
		Timers:   h.timers,
		Log:      h.log,
		Now:      func() time.Time { return h.now },
		Rand:     rand.New(rand.NewPCG(3, 4)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.w = w
	return h
}

func armedAlarm(name string, at time.Time) *alarmlib.Alarm {
	s := alarmlib.DefaultSettings(alarmlib.DefaultSounds[0].File)
	s.Name = name
	s.DaysOfWeek = alarmlib.Everyday
	a := alarmlib.NewAlarm(s)
	a.NextFire = &at
	a.State = alarmlib.StateArmed
	return a
}

func TestNew_ArmsHousekeeping(t *testing.T) {
	h := newHarness(t, true)
	if got := h.timers.crons[HousekeepingID]; got != common.DefaultHousekeepingCron {
		t.Fatalf("housekeeping cron = %q", got)
	}
	if len(h.log.Warnings()) != 0 {
		t.Fatalf("unexpected warnings %v", h.log.Warnings())
	}
}

func TestNew_InvalidHousekeeping(t *testing.T) {
	_, err := New(context.Background(), Config{Timers: newFakeTimers(), Housekeeping: "* * *"})
	if err == nil {
		t.Fatal("expected error for a bad cron expression")
	}
}

func TestNew_WarnsWithoutNotifier(t *testing.T) {
	h := newHarness(t, false)
	if len(h.log.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %v", h.log.Warnings())
	}
}

func TestUpdateAlarms_ArmsAndCancels(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(20 * time.Minute)
	a := armedAlarm("a", at)
	b := armedAlarm("b", at)
	b.IsActive = false
	b.NextFire = nil
	h.w.UpdateAlarms([]*alarmlib.Alarm{a, b})

	if got, ok := h.timers.at(a.ID); !ok || !got.Equal(at) {
		t.Fatalf("a armed at %v (%v)", got, ok)
	}
	if _, ok := h.timers.at(b.ID); ok {
		t.Fatal("inactive alarm must not be armed")
	}

	h.w.UpdateAlarms(nil)
	if _, ok := h.timers.at(a.ID); ok {
		t.Fatal("removed alarm must be cancelled")
	}
	if len(h.w.Alarms()) != 0 {
		t.Fatal("replica should be empty")
	}
}

func TestTrigger_NotifiesAndBroadcastsOnce(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})

	h.w.onTimer(a.ID, at.Add(time.Second)) // stale instant
	if shown, _ := h.notif.counts(); shown != 0 {
		t.Fatal("stale fire must be ignored")
	}

	h.w.onTimer(a.ID, at)
	h.w.onTimer(a.ID, at)
	msgs := h.hub.all()
	if len(msgs) != 1 || msgs[0].method != string(common.ALARM_TRIGGERED) {
		t.Fatalf("unexpected pushes %+v", msgs)
	}
	p := msgs[0].params.(*common.AlarmTriggeredParams)
	if p.Alarm.ID != a.ID || !p.Alarm.NextFire.Equal(at) {
		t.Fatalf("push does not carry the occurrence: %+v", p.Alarm)
	}

	// the same instant is not re-armed by a later snapshot
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	if _, ok := h.timers.at(a.ID); ok {
		t.Fatal("delivered occurrence must not be re-armed")
	}
}

func TestTrigger_NotifiesAtOnceWithoutSessions(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)
	if shown, _ := h.notif.counts(); shown != 1 {
		t.Fatalf("expected one notification, got %d", shown)
	}
	if _, ok := h.timers.at(noticePrefix + a.ID); ok {
		t.Fatal("no deferred notice expected without sessions")
	}
}

func TestTrigger_SessionRingingSuppressesNotification(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})

	h.now = at
	h.w.onTimer(a.ID, at)
	if shown, _ := h.notif.counts(); shown != 0 {
		t.Fatal("notification shown while a session may still pick up the ring")
	}
	due, ok := h.timers.at(noticePrefix + a.ID)
	if !ok || !due.Equal(at.Add(SessionGrace)) {
		t.Fatalf("deferred notice armed at %v (%v)", due, ok)
	}

	ringing := a.Clone()
	ringing.NextFire = nil
	ringing.State = alarmlib.StateRinging
	h.w.UpdateAlarms([]*alarmlib.Alarm{ringing})
	h.w.onTimer(noticePrefix+a.ID, due)
	if shown, _ := h.notif.counts(); shown != 0 {
		t.Fatal("the session is ringing; no desktop notification expected")
	}
}

func TestTrigger_NotifiesWhenSessionMissesRing(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.w.onTimer(noticePrefix+a.ID, at.Add(SessionGrace))
	h.w.onTimer(noticePrefix+a.ID, at.Add(SessionGrace))
	if shown, _ := h.notif.counts(); shown != 1 {
		t.Fatalf("expected one late notification, got %d", shown)
	}
}

func TestUpdateAlarms_ResolvedEpisodeCancelsNotice(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	later := base.Add(24 * time.Hour)
	moved := a.Clone()
	moved.NextFire = &later
	h.w.UpdateAlarms([]*alarmlib.Alarm{moved})
	if _, ok := h.timers.at(noticePrefix + a.ID); ok {
		t.Fatal("deferred notice should be cancelled once the session handled the ring")
	}
}

func TestUpdateAlarms_ResamplesStaleOccurrence(t *testing.T) {
	h := newHarness(t, true)
	stale := base.Add(-time.Hour)
	a := armedAlarm("Wake", stale)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})

	got, ok := h.timers.at(a.ID)
	if !ok || !got.After(base) {
		t.Fatalf("stale occurrence armed at %v (%v), want a future one", got, ok)
	}
	if r := h.w.Alarms(); len(r) != 1 || !r[0].FiresAt(got) {
		t.Fatalf("replica not moved to the new occurrence: %+v", r)
	}
}

func TestUpdateAlarms_KeepsRecentMissedOccurrence(t *testing.T) {
	h := newHarness(t, true)
	recent := base.Add(-common.DefaultMissedGrace / 2)
	a := armedAlarm("Wake", recent)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	if got, ok := h.timers.at(a.ID); !ok || !got.Equal(recent) {
		t.Fatalf("recent occurrence armed at %v (%v)", got, ok)
	}
}

func TestUpdateAlarms_KeepsUnansweredRing(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	// a session reopening long after the ring pushes the old instant
	h.now = at.Add(time.Hour)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	if r := h.w.Alarms(); len(r) != 1 || !r[0].FiresAt(at) {
		t.Fatalf("unanswered ring should keep its instant: %+v", r)
	}
	if len(h.w.Pending()) != 1 {
		t.Fatal("episode should stay open for replay")
	}
}

func TestTrigger_SkippedWhileSessionRings(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	a.State = alarmlib.StateRinging
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)
	if shown, _ := h.notif.counts(); shown != 0 {
		t.Fatal("a ringing alarm must not be notified again")
	}
}

func TestUpdateAlarms_ResolvesEpisodes(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	ringing := a.Clone()
	ringing.NextFire = nil
	ringing.State = alarmlib.StateRinging
	h.w.UpdateAlarms([]*alarmlib.Alarm{ringing})
	if len(h.w.Pending()) != 1 {
		t.Fatal("episode should stay open while the session rings")
	}

	later := base.Add(24 * time.Hour)
	moved := a.Clone()
	moved.NextFire = &later
	h.w.UpdateAlarms([]*alarmlib.Alarm{moved})
	if len(h.w.Pending()) != 0 {
		t.Fatal("episode should resolve once the occurrence moved on")
	}
	if _, closed := h.notif.counts(); closed != 1 {
		t.Fatalf("expected the notification to be closed, got %d closes", closed)
	}
}

func TestHandleAction_RelaysToSessions(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.w.HandleAction(notify.Action{Action: common.ActionStop, AlarmID: a.ID})
	msgs := h.hub.all()
	last := msgs[len(msgs)-1]
	if last.method != string(common.NOTIFICATION_ACTION) {
		t.Fatalf("expected a relayed action, got %+v", last)
	}
	if p := last.params.(*common.NotificationActionParams); p.Action != common.ActionStop || p.AlarmID != a.ID {
		t.Fatalf("unexpected params %+v", p)
	}
	if _, closed := h.notif.counts(); closed != 1 {
		t.Fatal("action should close the notification")
	}
}

func TestHandleAction_SnoozeWithoutSession(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.now = at.Add(30 * time.Second)
	h.w.HandleAction(notify.Action{Action: common.ActionSnooze, AlarmID: a.ID})
	want := h.now.Add(alarmlib.SnoozeInterval)
	if got, ok := h.timers.at(a.ID); !ok || !got.Equal(want) {
		t.Fatalf("local snooze armed at %v (%v), want %s", got, ok, want)
	}
	if len(h.hub.all()) != 0 {
		t.Fatal("nothing should be broadcast without sessions")
	}

	p := &fakePusher{}
	h.w.Replay(p)
	if len(p.sent) != 2 {
		t.Fatalf("expected trigger and action replay, got %+v", p.sent)
	}
	trig := p.sent[0].params.(*common.AlarmTriggeredParams)
	if p.sent[0].method != string(common.ALARM_TRIGGERED) || !trig.Alarm.NextFire.Equal(at) {
		t.Fatalf("replay should carry the original instant, got %+v", trig.Alarm.NextFire)
	}
	if p.sent[1].method != string(common.NOTIFICATION_ACTION) {
		t.Fatalf("second replay = %s", p.sent[1].method)
	}

	// the snoozed occurrence rings again with no session around
	h.now = want
	h.w.onTimer(a.ID, want)
	if shown, _ := h.notif.counts(); shown != 2 {
		t.Fatalf("snoozed alarm should notify again, shown %d", shown)
	}
}

func TestHandleAction_StopWithoutSessionReschedules(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.now = at
	h.w.HandleAction(notify.Action{Action: common.ActionStop, AlarmID: a.ID})
	got, ok := h.timers.at(a.ID)
	if !ok || !got.After(at) {
		t.Fatalf("expected a fresh future occurrence, got %v (%v)", got, ok)
	}
	// the rest of today's window, past the guard
	if got.Before(at.Add(alarmlib.GuardInterval)) || !got.Before(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurrence %s outside the remaining window", got)
	}
}

func TestReplay_StopsOnError(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.w.Replay(&fakePusher{err: errors.New("closed")})
	if len(h.log.Warnings()) == 0 {
		t.Fatal("expected a warning for the failed replay")
	}
}

func TestHousekeep_PrunesOldDeliveries(t *testing.T) {
	h := newHarness(t, true)
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.now = base.Add(49 * time.Hour)
	h.w.onTimer(HousekeepingID, h.now)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	if _, ok := h.timers.at(a.ID); !ok {
		t.Fatal("pruned occurrence should be armable again")
	}
}

func TestListen_DeliversNotifierActions(t *testing.T) {
	h := newHarness(t, true)
	h.hub.count = 1
	at := base.Add(time.Minute)
	a := armedAlarm("Wake", at)
	h.w.UpdateAlarms([]*alarmlib.Alarm{a})
	h.w.onTimer(a.ID, at)

	h.notif.actions <- notify.Action{Action: common.ActionSnooze, AlarmID: a.ID}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs := h.hub.all()
		if len(msgs) == 2 && msgs[1].method == string(common.NOTIFICATION_ACTION) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("action not relayed, pushes %+v", h.hub.all())
}
