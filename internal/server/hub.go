package server

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/randalarm/randalarm/pkg/logger"
)

// pushTimeout bounds one push so a stalled session cannot hold up a ring.
const pushTimeout = 5 * time.Second

// SessionHub is the set of connected sessions the daemon pushes rings and
// notification actions to.
type SessionHub struct {
	mu       sync.RWMutex
	sessions map[*jrpc2.Server]struct{}
	log      logger.Logger
}

func NewSessionHub(l logger.Logger) *SessionHub {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &SessionHub{
		sessions: make(map[*jrpc2.Server]struct{}),
		log:      l,
	}
}

// Register adds a session once its replay is done.
func (h *SessionHub) Register(srv *jrpc2.Server) {
	h.mu.Lock()
	h.sessions[srv] = struct{}{}
	h.mu.Unlock()
}

func (h *SessionHub) Unregister(srv *jrpc2.Server) {
	h.mu.Lock()
	delete(h.sessions, srv)
	h.mu.Unlock()
}

// Broadcast pushes to every session concurrently. A session the push fails
// on is dropped; its connection handler unregisters it again on close.
func (h *SessionHub) Broadcast(method string, params any) {
	h.mu.RLock()
	targets := make([]*jrpc2.Server, 0, len(h.sessions))
	for srv := range h.sessions {
		targets = append(targets, srv)
	}
	h.mu.RUnlock()

	failed := make([]bool, len(targets))
	var wg sync.WaitGroup
	for i, srv := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()
			if err := srv.Notify(ctx, method, params); err != nil {
				h.log.Warning("server: push %s failed, dropping session: %v", method, err)
				failed[i] = true
			}
		}()
	}
	wg.Wait()

	h.mu.Lock()
	for i, srv := range targets {
		if failed[i] {
			delete(h.sessions, srv)
		}
	}
	h.mu.Unlock()
}

// Count is the number of connected sessions.
func (h *SessionHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
