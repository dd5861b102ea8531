package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

type countdownEntry struct {
	name string
	at   time.Time
}

// countdownEntries lists the alarms armed for a future instant, soonest
// first.
func countdownEntries(alarms []*alarmlib.Alarm, now time.Time) []countdownEntry {
	var out []countdownEntry
	for _, a := range alarms {
		if !a.IsActive || a.NextFire == nil || !a.NextFire.After(now) {
			continue
		}
		out = append(out, countdownEntry{name: a.Name, at: *a.NextFire})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

func countdown(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	snap, err := readSnapshot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "countdown", "open", err)
		return nil
	}
	entries := countdownEntries(snap.alarms, time.Now())

	if len(entries) == 0 {
		fmt.Println("randalarm: no alarm is armed")
		return nil
	}

	sctx, cancel := untilStopped()
	defer cancel()

	start := time.Now()
	p := mpb.NewWithContext(sctx, mpb.WithWidth(40), mpb.WithRefreshRate(500*time.Millisecond))
	bars := make([]*mpb.Bar, len(entries))
	for i, e := range entries {
		bars[i] = common.InitCountdownBar(p, e.name, e.at.Sub(start))
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		elapsed := int64(time.Since(start) / time.Second)
		done := true
		for _, b := range bars {
			if !b.Completed() {
				b.SetCurrent(elapsed)
			}
			done = done && b.Completed()
		}
		if done {
			break
		}
		select {
		case <-sctx.Done():
			for _, b := range bars {
				b.Abort(false)
			}
			p.Wait()
			return nil
		case <-tick.C:
		}
	}
	p.Wait()
	return nil
}
