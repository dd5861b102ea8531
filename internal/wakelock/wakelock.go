// Package wakelock keeps the machine from idling into sleep while any
// alarm is active.
package wakelock

import (
	"fmt"
	"sync"

	"github.com/randalarm/randalarm/pkg/logger"
)

const (
	inhibitWhat = "idle:sleep"
	inhibitWho  = "randalarm"
	inhibitWhy  = "An alarm is scheduled"
	inhibitMode = "block"
)

// inhibitor takes and releases a platform sleep inhibitor.
type inhibitor interface {
	Inhibit(what, who, why, mode string) (int, error)
	Release(fd int) error
	Close() error
}

// Lock holds the inhibitor while it is set. On platforms without one it
// does nothing.
type Lock struct {
	mu   sync.Mutex
	inh  inhibitor
	log  logger.Logger
	fd   int
	held bool
}

// New creates a Lock for the current platform.
func New(l logger.Logger) *Lock {
	return newLock(newInhibitor(), l)
}

func newLock(inh inhibitor, l logger.Logger) *Lock {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Lock{inh: inh, log: l, fd: -1}
}

// Set takes the lock when active and releases it otherwise. Repeated calls
// with the same value are no-ops.
func (k *Lock) Set(active bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.inh == nil || active == k.held {
		return nil
	}
	if active {
		fd, err := k.inh.Inhibit(inhibitWhat, inhibitWho, inhibitWhy, inhibitMode)
		if err != nil {
			k.log.Warning("wakelock: cannot inhibit sleep: %v", err)
			return fmt.Errorf("inhibit sleep: %w", err)
		}
		k.fd, k.held = fd, true
		k.log.Info("wakelock: sleep inhibited")
		return nil
	}
	return k.releaseLocked()
}

func (k *Lock) releaseLocked() error {
	err := k.inh.Release(k.fd)
	k.fd, k.held = -1, false
	if err != nil {
		k.log.Warning("wakelock: release: %v", err)
		return fmt.Errorf("release inhibitor: %w", err)
	}
	k.log.Info("wakelock: released")
	return nil
}

// Held reports whether the inhibitor is held.
func (k *Lock) Held() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held
}

// Close releases the lock and the platform connection.
func (k *Lock) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.inh == nil {
		return nil
	}
	var err error
	if k.held {
		err = k.releaseLocked()
	}
	if cerr := k.inh.Close(); err == nil {
		err = cerr
	}
	return err
}
