package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/randalarm/randalarm/internal/config"
	"github.com/randalarm/randalarm/internal/engine"
	"github.com/randalarm/randalarm/pkg/alarmcli"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
	"github.com/urfave/cli"
)

var (
	errNoAlarmKey  = errors.New("an alarm id or name is required")
	errAmbiguous   = errors.New("more than one alarm matches")
	errNoDaemonRPC = errors.New("daemon not reachable")
)

// ensureDaemon is replaced in tests so no daemon is spawned.
var ensureDaemon = alarmcli.EnsureDaemon

// detached is a timer authority that never fires. Management commands
// edit the schedule and hand it to the daemon; they never ring.
type detached struct{}

func (detached) Arm(string, time.Time) {}
func (detached) Cancel(string)         {}

// oneShot is the engine a management command edits with: the persisted
// alarms loaded as they are, without a running clock.
type oneShot struct {
	cfg   *config.Config
	log   logger.Logger
	store *alarmlib.Storage
	eng   *engine.Engine
	snap  []*alarmlib.Alarm
}

func openOneShot(ctx *cli.Context) (*oneShot, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	l := newLogger(cfg)
	store, err := openStorage(cfg, l)
	if err != nil {
		return nil, err
	}
	return newOneShot(cfg, l, store), nil
}

func newOneShot(cfg *config.Config, l logger.Logger, store *alarmlib.Storage) *oneShot {
	o := &oneShot{cfg: cfg, log: l, store: store}
	o.eng = engine.New(context.Background(), engine.Config{
		Store:       store,
		Foreground:  detached{},
		Log:         logger.Component(l, "engine"),
		MissedGrace: cfg.MissedGrace,
		// a running session or the daemon owns rings and missed occurrences
		Passive: true,
		Hooks: engine.Hooks{
			OnScheduleUpdated: func(alarms []*alarmlib.Alarm) { o.snap = alarms },
		},
	})
	o.eng.Restore()
	return o
}

func (o *oneShot) close() {
	_ = o.store.Close()
}

// sync hands the edited schedule to the daemon, starting it when it is
// down.
func (o *oneShot) sync() error {
	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	u := daemonURI(o.cfg)
	if err := ensureDaemon(ctx, u); err != nil {
		return fmt.Errorf("%w: %v", errNoDaemonRPC, err)
	}
	sec, err := rpcSecret(o.cfg, o.log, false)
	if err != nil {
		return fmt.Errorf("%w: rpc secret: %v", errNoDaemonRPC, err)
	}
	c, err := alarmcli.Dial(ctx, u, sec, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoDaemonRPC, err)
	}
	defer c.Close()
	return c.UpdateAlarms(ctx, o.snap)
}

// finish syncs the daemon and reports a failure as a warning; the local
// change is already saved.
func (o *oneShot) finish() {
	if err := o.sync(); err != nil {
		fmt.Printf("warning: %v\nAlarms will only ring while \"randalarm run\" is open.\n", err)
	}
}

// snapshot is what read-only commands show: the store as persisted.
type snapshot struct {
	cfg    *config.Config
	alarms []*alarmlib.Alarm
	sounds []alarmlib.Sound
}

// readSnapshot loads the alarms and sounds without restoring them. Nothing
// is rescheduled, saved or sent to the daemon.
func readSnapshot(ctx *cli.Context) (*snapshot, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	store, err := openStorage(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return &snapshot{
		cfg:    cfg,
		alarms: store.LoadAlarms(),
		sounds: alarmlib.NewCatalog(store.LoadSounds()).Sounds(),
	}, nil
}

// findAlarm resolves key to one alarm: an exact id, a unique id prefix, a
// unique case-insensitive name or a unique name prefix, in that order.
func findAlarm(alarms []*alarmlib.Alarm, key string) (*alarmlib.Alarm, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errNoAlarmKey
	}
	lower := strings.ToLower(key)
	var byPrefix, byName, byNamePrefix []*alarmlib.Alarm
	for _, a := range alarms {
		if a.ID == key {
			return a, nil
		}
		if strings.HasPrefix(a.ID, key) {
			byPrefix = append(byPrefix, a)
		}
		name := strings.ToLower(a.Name)
		if name == lower {
			byName = append(byName, a)
		}
		if strings.HasPrefix(name, lower) {
			byNamePrefix = append(byNamePrefix, a)
		}
	}
	for _, m := range [][]*alarmlib.Alarm{byPrefix, byName, byNamePrefix} {
		switch len(m) {
		case 0:
		case 1:
			return m[0], nil
		default:
			return nil, fmt.Errorf("%w %q", errAmbiguous, key)
		}
	}
	return nil, fmt.Errorf("%w: %q", engine.ErrAlarmNotFound, key)
}
