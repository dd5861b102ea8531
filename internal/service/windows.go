//go:build windows

package service

import (
	"context"
	"time"

	"github.com/randalarm/randalarm/pkg/logger"
	"golang.org/x/sys/windows/svc"
)

// Name of the installed service and its Event Log source.
const (
	DefaultName        = "randalarm"
	DefaultDisplayName = "randalarm alarm daemon"
	DefaultDescription = "Delivers randalarm alarms while no session is open."
)

const acceptedCommands = svc.AcceptStop | svc.AcceptShutdown

// startGrace is how long Execute waits for an immediate start failure
// before reporting Running.
const startGrace = 50 * time.Millisecond

var stopTimeout = 10 * time.Second

// Runner is the part of the daemon runner the handler drives.
type Runner interface {
	Start(ctx context.Context) error
	Shutdown() error
	IsRunning() bool
}

// WindowsHandler implements svc.Handler around a daemon runner.
type WindowsHandler struct {
	runner Runner
	log    logger.Logger
}

func NewWindowsHandler(runner Runner, l logger.Logger) *WindowsHandler {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &WindowsHandler{runner: runner, log: l}
}

// Execute runs the service state machine
//
//	StartPending -> Running -> StopPending -> Stopped
//
// Start arguments are ignored; the service command line carries the config
// path.
func (h *WindowsHandler) Execute(_ []string, requests <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}
	h.log.Info("service: starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startErr := make(chan error, 1)
	go func() {
		startErr <- h.runner.Start(ctx)
	}()
	select {
	case err := <-startErr:
		if err != nil {
			h.log.Error("service: start failed: %v", err)
			status <- svc.Status{State: svc.Stopped}
			return false, 1
		}
		status <- svc.Status{State: svc.Stopped}
		return false, 0
	case <-time.After(startGrace):
	}

	status <- svc.Status{State: svc.Running, Accepts: acceptedCommands}
	h.log.Info("service: running")

	for {
		select {
		case err := <-startErr:
			// the runner stopped on its own
			h.log.Error("service: daemon exited: %v", err)
			status <- svc.Status{State: svc.Stopped}
			return false, 1
		case req, ok := <-requests:
			if !ok {
				return false, 0
			}
			switch req.Cmd {
			case svc.Interrogate:
				status <- svc.Status{State: svc.Running, Accepts: acceptedCommands}
			case svc.Stop, svc.Shutdown:
				return h.stop(status, cancel, startErr)
			}
		}
	}
}

// stop ends the runner and waits for its cleanup before reporting Stopped.
func (h *WindowsHandler) stop(status chan<- svc.Status, cancel context.CancelFunc, done <-chan error) (bool, uint32) {
	h.log.Info("service: stopping")
	status <- svc.Status{State: svc.StopPending}
	var code uint32
	if h.runner.IsRunning() {
		if err := h.runner.Shutdown(); err != nil {
			h.log.Error("service: shutdown: %v", err)
			code = 1
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		h.log.Warning("service: daemon did not stop within %s", stopTimeout)
	}
	status <- svc.Status{State: svc.Stopped}
	return false, code
}

// Run hands the process to the SCM until the service stops.
func Run(name string, h *WindowsHandler) error {
	return svc.Run(name, h)
}

// IsWindowsService reports whether the process was started by the SCM.
func IsWindowsService() (bool, error) {
	return svc.IsWindowsService()
}
