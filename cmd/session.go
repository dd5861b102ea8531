package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	cmdCommon "github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/config"
	"github.com/randalarm/randalarm/internal/engine"
	"github.com/randalarm/randalarm/internal/ringer"
	"github.com/randalarm/randalarm/internal/wakelock"
	"github.com/randalarm/randalarm/pkg/alarmcli"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
	"github.com/urfave/cli"
)

var runFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "no-daemon",
		Usage: "do not start or contact the background daemon",
	},
}

// console serializes session output; hooks and the shell write from
// different goroutines.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// wakeLock keeps the machine awake while any alarm is active.
type wakeLock interface {
	Set(active bool) error
	Close() error
}

var newWakeLock = func(l logger.Logger) wakeLock {
	return wakelock.New(l)
}

// session is one open foreground authority.
type session struct {
	cfg  *config.Config
	log  logger.Logger
	out  *console
	eng  *engine.Engine
	ring *ringer.Ringer
	lock wakeLock
	link *alarmcli.Link
}

// newSession wires the engine to its ring output, the wake lock and, when
// secret is set, the daemon link. The engine is not restored yet.
func newSession(ctx context.Context, cfg *config.Config, l logger.Logger, store engine.Store, out io.Writer, secret string) *session {
	s := &session{
		cfg:  cfg,
		log:  l,
		out:  &console{w: out},
		lock: newWakeLock(logger.Component(l, "wakelock")),
	}
	s.ring = ringer.New(ringer.Config{
		Player: cfg.Player,
		Sounds: ringer.NewSoundCache(appFs, filepath.Join(cfg.SoundsDir(), "cache"), nil),
		Bell:   s.out,
		Log:    logger.Component(l, "ringer"),
	})
	if secret != "" {
		d := alarmcli.NewDispatcher(logger.Component(l, "dispatch"))
		d.AddHandler(common.ALARM_TRIGGERED, alarmcli.NewTriggeredHandler(s.onTriggered))
		d.AddHandler(common.NOTIFICATION_ACTION, alarmcli.NewActionHandler("", s.onAction))
		s.link = alarmcli.NewLink(alarmcli.LinkConfig{
			URI:          daemonURI(cfg),
			Secret:       secret,
			Dispatcher:   d,
			OnConnect:    s.onConnect,
			OnDisconnect: s.onDisconnect,
			OnSynced:     s.onSynced,
			Log:          logger.Component(l, "link"),
		})
	}
	s.eng = engine.New(ctx, engine.Config{
		Store:       store,
		Log:         logger.Component(l, "engine"),
		MissedGrace: cfg.MissedGrace,
		// the daemon may still be ringing an occurrence this session missed
		DeferMissed: s.link != nil,
		Hooks: engine.Hooks{
			OnRing:              s.onRing,
			OnStopRing:          func(string) { s.ring.Stop() },
			OnScheduleUpdated:   s.onSchedule,
			OnActiveChanged:     s.onActive,
			OnBackgroundChanged: s.onBackground,
		},
	})
	return s
}

func (s *session) onRing(ev engine.RingEvent) {
	s.ring.Start(ev)
	s.out.printf("\n*** Alarm: %s is ringing. Type \"snooze\" or \"stop\". ***\n> ", ev.Name)
}

func (s *session) onSchedule(alarms []*alarmlib.Alarm) {
	if s.link != nil {
		s.link.PushSnapshot(alarms)
	}
}

func (s *session) onActive(active bool) {
	if err := s.lock.Set(active); err != nil {
		s.log.Warning("session: wake lock: %v", err)
	}
}

func (s *session) onBackground(ok bool, reason string) {
	if ok {
		s.out.printf("Background delivery available.\n")
		return
	}
	s.out.printf("warning: background delivery unavailable (%s). Alarms ring only while this session is open.\n", reason)
}

func (s *session) onConnect() {
	s.eng.SetBackgroundAvailable(true, "")
	// a fresh daemon has an empty replica
	s.eng.Resync()
}

func (s *session) onDisconnect(reason string) {
	s.eng.SetBackgroundAvailable(false, reason)
	s.eng.SettleMissed()
}

// onSynced runs once the daemon has replayed its rings and taken our
// snapshot; missed occurrences it did not replay get a fresh one.
func (s *session) onSynced() {
	s.eng.SettleMissed()
}

func (s *session) onTriggered(p *common.AlarmTriggeredParams) error {
	s.eng.HandleTriggered(p.Alarm)
	return nil
}

func (s *session) onAction(p *common.NotificationActionParams) error {
	err := s.eng.HandleAction(string(p.Action), p.AlarmID)
	// replays of an already resolved ring
	if errors.Is(err, engine.ErrNotRinging) || errors.Is(err, engine.ErrAlarmNotFound) {
		return nil
	}
	return err
}

// close stops playback and releases the wake lock. Timers die with the
// engine context.
func (s *session) close() {
	s.ring.Stop()
	if err := s.lock.Close(); err != nil {
		s.log.Warning("session: release wake lock: %v", err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "run", "load_config", err)
		return nil
	}
	l := newLogger(cfg)
	store, err := openStorage(cfg, l)
	if err != nil {
		cmdCommon.PrintRuntimeErr(ctx, "run", "open_store", err)
		return nil
	}
	defer store.Close()

	sctx, cancel := untilStopped()
	defer cancel()

	var sec, reason string
	if ctx.Bool("no-daemon") {
		reason = "disabled by --no-daemon"
	} else {
		sec, err = connectDaemon(sctx, cfg, l)
		if err != nil {
			reason = err.Error()
		}
	}

	s := newSession(sctx, cfg, l, store, os.Stdout, sec)
	defer s.close()
	s.eng.Restore()
	if s.link == nil {
		s.eng.SetBackgroundAvailable(false, reason)
		s.eng.SettleMissed()
	} else {
		go func() {
			if err := s.link.Run(sctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Warning("session: daemon link stopped: %v", err)
			}
		}()
	}

	s.out.printf("randalarm session started. Type \"help\" for commands.\n")
	sh := &shell{eng: s.eng, out: s.out}
	return sh.serve(sctx, os.Stdin)
}

// connectDaemon brings the daemon up and returns the secret to reach it.
func connectDaemon(ctx context.Context, cfg *config.Config, l logger.Logger) (string, error) {
	ectx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	defer cancel()
	if err := ensureDaemon(ectx, daemonURI(cfg)); err != nil {
		return "", err
	}
	sec, err := rpcSecret(cfg, l, false)
	if err != nil {
		return "", fmt.Errorf("rpc secret: %w", err)
	}
	return sec, nil
}

// serve reads commands until quit, end of input or ctx is done.
func (sh *shell) serve(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	sh.out.printf("> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if sh.exec(line) {
				return nil
			}
			sh.out.printf("> ")
		}
	}
}
