package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randalarm/randalarm/internal/engine"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

const shellHelp = `Commands:
  snooze                         snooze the ringing alarm for 5 minutes
  stop                           stop the ringing alarm
  status                         show the ringing and queued alarms
  list                           list alarms
  add <start> <end> [days] [name...]
                                 add an alarm, e.g. "add 06:30 07:15 weekdays Wake up"
  edit <alarm> key=value...      change start, end, days, sound or name
  toggle <alarm>                 turn an alarm on or off
  delete <alarm>                 delete an alarm
  sounds                         list sounds
  quit                           close the session
`

var errUsage = errors.New("usage")

// shell executes the commands typed into an open session.
type shell struct {
	eng *engine.Engine
	out *console
}

// exec runs one command line and reports whether the session should end.
func (sh *shell) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	var err error
	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		sh.out.printf("%s", shellHelp)
	case "snooze":
		if err = sh.eng.Snooze(); err == nil {
			sh.out.printf("Snoozed for %s.\n", alarmlib.SnoozeInterval)
		}
	case "stop":
		if err = sh.eng.Stop(); err == nil {
			sh.out.printf("Stopped.\n")
		}
	case "status":
		sh.status()
	case "list", "ls":
		sh.out.printf("%s\n", alarmTable(sh.eng.Alarms()))
	case "sounds":
		sh.out.printf("%s\n", soundTable(sh.eng.Sounds()))
	case "add":
		err = sh.add(args)
	case "edit":
		err = sh.edit(args)
	case "toggle":
		err = sh.toggle(args)
	case "delete", "rm":
		err = sh.delete(args)
	default:
		err = fmt.Errorf("unknown command %q, type \"help\"", cmd)
	}
	if errors.Is(err, errUsage) {
		sh.out.printf("%v\n", err)
	} else if err != nil {
		sh.out.printf("error: %v\n", err)
	}
	return false
}

func (sh *shell) status() {
	ev, ok := sh.eng.Ringing()
	if !ok {
		sh.out.printf("Nothing is ringing.\n")
		return
	}
	sh.out.printf("Ringing: %s (due %s)\n", ev.Name, ev.At.Local().Format("15:04:05"))
	for _, q := range sh.eng.Queued() {
		sh.out.printf("Queued:  %s (due %s)\n", q.Name, q.At.Local().Format("15:04:05"))
	}
}

func (sh *shell) add(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: add <start> <end> [days] [name...]", errUsage)
	}
	e := alarmEdit{Start: args[0], End: args[1]}
	if len(args) > 2 {
		e.Days = args[2]
	}
	if len(args) > 3 {
		name := strings.Join(args[3:], " ")
		e.Name = &name
	}
	s, err := e.apply(alarmlib.DefaultSettings(""), sh.eng.Sounds())
	if err != nil {
		return err
	}
	a := sh.eng.Create(s)
	sh.out.printf("Added alarm %q (%s).\n", a.Name, shortID(a.ID))
	return nil
}

// parseAssignments reads key=value edits. A name may contain spaces when
// it comes last: "name=Morning run".
func parseAssignments(args []string) (alarmEdit, error) {
	var e alarmEdit
	for i := 0; i < len(args); i++ {
		k, v, ok := strings.Cut(args[i], "=")
		if !ok {
			return e, fmt.Errorf("%w: expected key=value, got %q", errUsage, args[i])
		}
		switch strings.ToLower(k) {
		case "start":
			e.Start = v
		case "end":
			e.End = v
		case "days":
			e.Days = v
		case "sound":
			e.Sound = v
		case "name":
			name := strings.Join(append([]string{v}, args[i+1:]...), " ")
			e.Name = &name
			return e, nil
		default:
			return e, fmt.Errorf("%w: unknown field %q", errUsage, k)
		}
	}
	return e, nil
}

func (sh *shell) edit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: edit <alarm> key=value...", errUsage)
	}
	a, err := findAlarm(sh.eng.Alarms(), args[0])
	if err != nil {
		return err
	}
	e, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	s, err := e.apply(a.Settings(), sh.eng.Sounds())
	if err != nil {
		return err
	}
	if _, err := sh.eng.Update(a.ID, s); err != nil {
		return err
	}
	sh.out.printf("Updated alarm %q.\n", a.Name)
	return nil
}

func (sh *shell) toggle(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: toggle <alarm>", errUsage)
	}
	a, err := findAlarm(sh.eng.Alarms(), args[0])
	if err != nil {
		return err
	}
	if a, err = sh.eng.Toggle(a.ID); err != nil {
		return err
	}
	sh.out.printf("Alarm %q is now %s.\n", a.Name, onOff(a.IsActive))
	return nil
}

func (sh *shell) delete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete <alarm>", errUsage)
	}
	a, err := findAlarm(sh.eng.Alarms(), args[0])
	if err != nil {
		return err
	}
	if err := sh.eng.Delete(a.ID); err != nil {
		return err
	}
	sh.out.printf("Deleted alarm %q.\n", a.Name)
	return nil
}
