package ringer

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/randalarm/randalarm/internal/engine"
	"github.com/randalarm/randalarm/pkg/logger"
)

// DefaultPlayer is used when no player is configured.
const DefaultPlayer = "paplay"

const (
	defaultBellInterval = time.Second
	fetchTimeout        = 30 * time.Second
	// replayPause keeps a player that exits instantly from spinning.
	replayPause = 200 * time.Millisecond
)

// Resolver maps a sound handle to a local path.
type Resolver interface {
	Path(ctx context.Context, handle string) (string, error)
}

// Config configures a Ringer.
type Config struct {
	// Player is the command line of the audio player; the sound path is
	// appended. "none" disables the player and rings the bell.
	Player string
	Sounds Resolver
	// Bell receives the BEL character when no player can run.
	Bell         io.Writer
	BellInterval time.Duration
	Log          logger.Logger
}

// Ringer plays at most one ring at a time.
type Ringer struct {
	cfg Config
	log logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	playing string
}

// New creates a Ringer.
func New(cfg Config) *Ringer {
	if cfg.Player == "" {
		cfg.Player = DefaultPlayer
	}
	if cfg.Bell == nil {
		cfg.Bell = os.Stdout
	}
	if cfg.BellInterval <= 0 {
		cfg.BellInterval = defaultBellInterval
	}
	l := cfg.Log
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Ringer{cfg: cfg, log: l}
}

// Start begins looping the sound of ev, replacing any ring in progress.
// It returns immediately.
func (r *Ringer) Start(ev engine.RingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done, r.playing = cancel, done, ev.AlarmID
	go func() {
		defer close(done)
		r.loop(ctx, ev)
	}()
}

// Stop ends playback and waits for the player process to exit. The next
// Start plays from the beginning.
func (r *Ringer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Playing returns the id of the alarm being played, or "".
func (r *Ringer) Playing() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

func (r *Ringer) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done, r.playing = nil, nil, ""
}

func (r *Ringer) loop(ctx context.Context, ev engine.RingEvent) {
	args := strings.Fields(r.cfg.Player)
	if len(args) == 0 || args[0] == "none" {
		r.bell(ctx)
		return
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		r.log.Warning("ringer: player %q unavailable, using terminal bell: %v", args[0], err)
		r.bell(ctx)
		return
	}
	file := ev.SoundFile
	if r.cfg.Sounds != nil {
		fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		p, err := r.cfg.Sounds.Path(fctx, ev.SoundFile)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warning("ringer: sound %q unavailable, using terminal bell: %v", ev.SoundFile, err)
			r.bell(ctx)
			return
		}
		file = p
	}
	args = append(args, file)

	for ctx.Err() == nil {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		if err := cmd.Run(); err != nil && ctx.Err() == nil {
			r.log.Warning("ringer: %s failed, using terminal bell: %v", args[0], err)
			r.bell(ctx)
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(replayPause):
		}
	}
}

func (r *Ringer) bell(ctx context.Context) {
	t := time.NewTicker(r.cfg.BellInterval)
	defer t.Stop()
	for {
		_, _ = io.WriteString(r.cfg.Bell, "\a")
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
