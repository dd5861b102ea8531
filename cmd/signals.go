package cmd

import (
	"context"
	"os/signal"
)

// untilStopped returns a context that is cancelled by the first stop
// signal. A second signal gets the default behaviour and kills the
// process.
func untilStopped() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), stopSignals...)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
