package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/randalarm/randalarm/cmd/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/urfave/cli"
)

const shortIDLen = 8

var alarmFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "name, n",
		Usage: "alarm name (default: \"Alarm <start>-<end>\")",
	},
	cli.StringFlag{
		Name:  "start, s",
		Usage: "window start as HH:MM (default: 07:00)",
	},
	cli.StringFlag{
		Name:  "end, e",
		Usage: "window end as HH:MM (default: 09:00)",
	},
	cli.StringFlag{
		Name:  "days, d",
		Usage: "comma separated weekdays, or weekdays, weekends, daily, none (default: weekdays)",
	},
	cli.StringFlag{
		Name:  "sound",
		Usage: "sound name or file from the catalog (default: first built-in sound)",
	},
}

// alarmEdit holds the settings a user asked to change. Empty fields keep
// the current value.
type alarmEdit struct {
	Name  *string
	Start string
	End   string
	Days  string
	Sound string
}

func editFromFlags(ctx *cli.Context) alarmEdit {
	var e alarmEdit
	if ctx.IsSet("name") {
		n := ctx.String("name")
		e.Name = &n
	}
	e.Start = ctx.String("start")
	e.End = ctx.String("end")
	e.Days = ctx.String("days")
	e.Sound = ctx.String("sound")
	return e
}

// apply merges the edit onto base, resolving the sound against the
// catalog.
func (e alarmEdit) apply(base alarmlib.Settings, sounds []alarmlib.Sound) (alarmlib.Settings, error) {
	s := base
	if e.Name != nil {
		s.Name = *e.Name
	}
	if e.Start != "" {
		t, err := alarmlib.ParseTimeOfDay(e.Start)
		if err != nil {
			return s, fmt.Errorf("start: %w", err)
		}
		s.StartTime = t
	}
	if e.End != "" {
		t, err := alarmlib.ParseTimeOfDay(e.End)
		if err != nil {
			return s, fmt.Errorf("end: %w", err)
		}
		s.EndTime = t
	}
	if e.Days != "" {
		d, err := alarmlib.ParseWeekdayList(e.Days)
		if err != nil {
			return s, err
		}
		s.DaysOfWeek = d
	}
	if e.Sound != "" {
		f, err := resolveSound(sounds, e.Sound)
		if err != nil {
			return s, err
		}
		s.SoundFile = f
	}
	return s, nil
}

func resolveSound(sounds []alarmlib.Sound, key string) (string, error) {
	for _, s := range sounds {
		if strings.EqualFold(s.Name, key) || s.File == key {
			return s.File, nil
		}
	}
	return "", fmt.Errorf("%w: %s", alarmlib.ErrSoundNotFound, key)
}

func addAlarm(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "open", err)
		return nil
	}
	defer o.close()

	s, err := editFromFlags(ctx).apply(alarmlib.DefaultSettings(""), o.eng.Sounds())
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "parse", err)
		return nil
	}
	a := o.eng.Create(s)
	fmt.Printf("Added alarm %q (%s)\n", a.Name, shortID(a.ID))
	printNext(a)
	o.finish()
	return nil
}

func editAlarm(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "edit", "open", err)
		return nil
	}
	defer o.close()

	a, err := findAlarm(o.eng.Alarms(), ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "edit", "find", err)
		return nil
	}
	s, err := editFromFlags(ctx).apply(a.Settings(), o.eng.Sounds())
	if err != nil {
		common.PrintRuntimeErr(ctx, "edit", "parse", err)
		return nil
	}
	if a, err = o.eng.Update(a.ID, s); err != nil {
		common.PrintRuntimeErr(ctx, "edit", "update", err)
		return nil
	}
	fmt.Printf("Updated alarm %q (%s)\n", a.Name, shortID(a.ID))
	printNext(a)
	o.finish()
	return nil
}

func toggleAlarm(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "toggle", "open", err)
		return nil
	}
	defer o.close()

	a, err := findAlarm(o.eng.Alarms(), ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "toggle", "find", err)
		return nil
	}
	if a, err = o.eng.Toggle(a.ID); err != nil {
		common.PrintRuntimeErr(ctx, "toggle", "toggle", err)
		return nil
	}
	fmt.Printf("Alarm %q is now %s\n", a.Name, onOff(a.IsActive))
	printNext(a)
	o.finish()
	return nil
}

func deleteAlarm(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	o, err := openOneShot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "delete", "open", err)
		return nil
	}
	defer o.close()

	a, err := findAlarm(o.eng.Alarms(), ctx.Args().First())
	if err != nil {
		common.PrintRuntimeErr(ctx, "delete", "find", err)
		return nil
	}
	if err := o.eng.Delete(a.ID); err != nil {
		common.PrintRuntimeErr(ctx, "delete", "delete", err)
		return nil
	}
	fmt.Printf("Deleted alarm %q\n", a.Name)
	o.finish()
	return nil
}

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	snap, err := readSnapshot(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "open", err)
		return nil
	}
	fmt.Println(alarmTable(snap.alarms))
	return nil
}

// alarmTable renders alarms the way list shows them.
func alarmTable(alarms []*alarmlib.Alarm) string {
	if len(alarms) == 0 {
		return "randalarm: no alarms found"
	}
	txt := "Here are your alarms:"
	txt += "\n\n---------------------------------------------------------------------------------------"
	txt += "\n|    Id    |          Name          |   Window    |   Days   | On  |    Next ring     |"
	txt += "\n|----------|------------------------|-------------|----------|-----|------------------|"
	for _, a := range alarms {
		name := a.Name
		n := len(name)
		switch {
		case n > 22:
			name = name[:19] + "..."
		case n < 22:
			name = common.Beaut(name, 22)
		}
		days := a.DaysOfWeek.String()
		if len(days) > 8 {
			days = days[:5] + "..."
		}
		window := fmt.Sprintf("%s-%s", a.StartTime, a.EndTime)
		txt += fmt.Sprintf("\n| %s | %s | %s | %s | %s | %s |",
			shortID(a.ID), name, window, common.Beaut(days, 8),
			common.Beaut(onOff(a.IsActive), 3), common.Beaut(nextRing(a), 16))
	}
	txt += "\n---------------------------------------------------------------------------------------"
	return txt
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func onOff(active bool) string {
	if active {
		return "on"
	}
	return "off"
}

func nextRing(a *alarmlib.Alarm) string {
	switch {
	case a.State == alarmlib.StateRinging:
		return "ringing"
	case a.State == alarmlib.StateQueued:
		return "queued"
	case a.NextFire == nil:
		return "-"
	}
	return a.NextFire.Local().Format("Mon 02 Jan 15:04")
}

func printNext(a *alarmlib.Alarm) {
	if a.NextFire == nil {
		fmt.Println("It will not ring until it is turned on and has at least one day.")
		return
	}
	left := time.Until(*a.NextFire).Round(time.Minute)
	fmt.Printf("Next ring: %s (in %s)\n", a.NextFire.Local().Format("Mon 02 Jan 15:04"), common.FormatRemaining(left))
}
