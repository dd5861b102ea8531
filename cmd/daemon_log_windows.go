//go:build windows

package cmd

import "github.com/randalarm/randalarm/pkg/logger"

const eventSource = "randalarm"

// withPlatformLog adds the Windows Event Log when the source can be opened.
func withPlatformLog(l logger.Logger) logger.Logger {
	ev, err := logger.NewEventLogger(eventSource)
	if err != nil {
		l.Warning("event log unavailable: %v", err)
		return l
	}
	return logger.Tee(l, ev)
}
