package alarmcli

import (
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/logger"
)

// Dispatcher routes daemon pushes to the handlers registered for their
// method. Pushes nobody handles are ignored.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[common.UpdateType][]Handler
	log      logger.Logger
}

// NewDispatcher creates an empty dispatcher. A nil logger discards
// handler failures.
func NewDispatcher(l logger.Logger) *Dispatcher {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Dispatcher{
		handlers: make(map[common.UpdateType][]Handler),
		log:      l,
	}
}

// AddHandler registers h for pushes of kind t.
func (d *Dispatcher) AddHandler(t common.UpdateType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

// process runs on the client's reader goroutine; handlers must not call
// back into the client.
func (d *Dispatcher) process(req *jrpc2.Request) {
	t := common.UpdateType(req.Method())
	d.mu.RLock()
	hs := d.handlers[t]
	d.mu.RUnlock()
	if len(hs) == 0 {
		return
	}
	params := json.RawMessage(req.ParamString())
	for _, h := range hs {
		if err := h.Handle(params); err != nil {
			d.log.Warning("alarmcli: %s handler: %v", t, err)
		}
	}
}
