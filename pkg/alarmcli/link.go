package alarmcli

import (
	"context"
	"sync"
	"time"

	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	callTimeout       = 5 * time.Second
)

// LinkConfig configures a Link.
type LinkConfig struct {
	URI        *DaemonURI
	Secret     string
	Dispatcher *Dispatcher
	// OnConnect runs after every successful dial, before queued snapshots
	// are sent.
	OnConnect func()
	// OnDisconnect runs after every failed dial and every lost connection.
	OnDisconnect func(reason string)
	// OnSynced runs after the daemon accepted a snapshot. The daemon has
	// replayed its unresolved rings to the session by then.
	OnSynced func()
	Log          logger.Logger
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// Link keeps a session connected to the daemon and forwards alarm
// snapshots to it. Snapshots are coalesced: only the latest unsent one is
// kept, and they leave from a single goroutine in order.
type Link struct {
	cfg LinkConfig
	log logger.Logger

	mu        sync.Mutex
	pending   []*alarmlib.Alarm
	hasSnap   bool
	connected bool
	kick      chan struct{}
}

// NewLink creates a Link. Nothing is dialled before Run.
func NewLink(cfg LinkConfig) *Link {
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = defaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDispatcher(cfg.Log)
	}
	l := cfg.Log
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Link{
		cfg:  cfg,
		log:  l,
		kick: make(chan struct{}, 1),
	}
}

// PushSnapshot queues alarms for the daemon. It never blocks.
func (l *Link) PushSnapshot(alarms []*alarmlib.Alarm) {
	l.mu.Lock()
	l.pending = alarms
	l.hasSnap = true
	l.mu.Unlock()
	l.wake()
}

// Connected reports whether a session is currently open.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *Link) wake() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

func (l *Link) take() ([]*alarmlib.Alarm, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasSnap {
		return nil, false
	}
	snap := l.pending
	l.pending, l.hasSnap = nil, false
	return snap, true
}

// requeue puts back a snapshot that failed to send unless a newer one
// arrived meanwhile.
func (l *Link) requeue(snap []*alarmlib.Alarm) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasSnap {
		l.pending, l.hasSnap = snap, true
	}
}

func (l *Link) setConnected(ok bool) {
	l.mu.Lock()
	l.connected = ok
	l.mu.Unlock()
}

// Run dials, serves and redials with exponential backoff until ctx is
// cancelled.
func (l *Link) Run(ctx context.Context) error {
	backoff := l.cfg.MinBackoff
	for {
		c, err := Dial(ctx, l.cfg.URI, l.cfg.Secret, l.cfg.Dispatcher)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.disconnected(err.Error())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > l.cfg.MaxBackoff {
				backoff = l.cfg.MaxBackoff
			}
			continue
		}
		backoff = l.cfg.MinBackoff
		l.setConnected(true)
		l.log.Info("alarmcli: connected to daemon at %s", l.cfg.URI)
		if l.cfg.OnConnect != nil {
			l.cfg.OnConnect()
		}
		l.wake()
		reason := l.serve(ctx, c)
		_ = c.Close()
		l.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}
		l.disconnected(reason)
	}
}

func (l *Link) disconnected(reason string) {
	l.log.Warning("alarmcli: daemon unreachable: %s", reason)
	if l.cfg.OnDisconnect != nil {
		l.cfg.OnDisconnect(reason)
	}
}

func (l *Link) serve(ctx context.Context, c *Client) string {
	for {
		select {
		case <-ctx.Done():
			return "session closed"
		case <-c.Done():
			return c.Err().Error()
		case <-l.kick:
			snap, ok := l.take()
			if !ok {
				continue
			}
			cctx, cancel := context.WithTimeout(ctx, callTimeout)
			err := c.UpdateAlarms(cctx, snap)
			cancel()
			if err != nil {
				l.requeue(snap)
				return err.Error()
			}
			if l.cfg.OnSynced != nil {
				l.cfg.OnSynced()
			}
		}
	}
}
