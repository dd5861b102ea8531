package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/randalarm/randalarm/internal/engine"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

func newTestShell(t *testing.T) (*shell, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	eng := engine.New(context.Background(), engine.Config{
		Store:      memStorage(),
		Foreground: detached{},
	})
	eng.Restore()
	return &shell{eng: eng, out: &console{w: buf}}, buf
}

func TestShell_Commands(t *testing.T) {
	sh, buf := newTestShell(t)

	steps := []struct {
		line string
		want string
	}{
		{"help", "Commands:"},
		{"add 06:30 07:15 weekdays Wake up", `Added alarm "Wake up"`},
		{"list", "Wake up"},
		{"edit wake name=Rise and shine", `Updated alarm "Wake up"`},
		{"list", "Rise and shine"},
		{"toggle rise", "is now off"},
		{"status", "Nothing is ringing."},
		{"snooze", "error: "},
		{"sounds", "Gentle Chime"},
		{"delete rise", `Deleted alarm "Rise and shine"`},
		{"frobnicate", `unknown command "frobnicate"`},
		{"add 06:30", "usage: add <start> <end>"},
		{"edit", "usage: edit"},
	}
	for _, st := range steps {
		before := len(buf.String())
		if sh.exec(st.line) {
			t.Fatalf("%q ended the session", st.line)
		}
		if out := buf.String()[before:]; !strings.Contains(out, st.want) {
			t.Errorf("%q printed %q, want it to contain %q", st.line, out, st.want)
		}
	}
	if n := len(sh.eng.Alarms()); n != 0 {
		t.Fatalf("expected no alarms left, got %d", n)
	}
}

func TestShell_Quit(t *testing.T) {
	sh, _ := newTestShell(t)
	for _, line := range []string{"quit", "exit", "q", "  QUIT  "} {
		if !sh.exec(line) {
			t.Errorf("%q should end the session", line)
		}
	}
	if sh.exec("") {
		t.Error("an empty line must not end the session")
	}
}

func TestShell_Serve(t *testing.T) {
	sh, buf := newTestShell(t)
	in := strings.NewReader("add 05:00 05:30 daily Early\nlist\nquit\nadd 06:00 07:00\n")
	if err := sh.serve(context.Background(), in); err != nil {
		t.Fatalf("serve: %v", err)
	}
	assertContains(t, buf.String(), "Early")
	// commands after quit are not run
	if n := len(sh.eng.Alarms()); n != 1 {
		t.Fatalf("expected 1 alarm, got %d", n)
	}
}

func TestParseAssignments(t *testing.T) {
	e, err := parseAssignments([]string{"start=06:00", "days=mon,tue", "sound=Gentle", "name=Long", "name", "here"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if e.Start != "06:00" || e.Days != "mon,tue" || e.Sound != "Gentle" {
		t.Fatalf("unexpected edit %+v", e)
	}
	if e.Name == nil || *e.Name != "Long name here" {
		t.Fatalf("name = %v, want %q", e.Name, "Long name here")
	}

	for _, bad := range [][]string{{"start"}, {"color=red"}} {
		if _, err := parseAssignments(bad); err == nil {
			t.Errorf("parseAssignments(%v) should fail", bad)
		}
	}
}

func TestShell_EditKeepsUnsetFields(t *testing.T) {
	sh, _ := newTestShell(t)
	sh.exec("add 06:30 07:15 weekends Lazy")
	sh.exec("edit lazy end=08:00")
	a := sh.eng.Alarms()[0]
	if a.StartTime != alarmlib.MustTimeOfDay("06:30") || a.EndTime != alarmlib.MustTimeOfDay("08:00") {
		t.Fatalf("window = %s-%s", a.StartTime, a.EndTime)
	}
	if a.DaysOfWeek != alarmlib.Weekends || a.Name != "Lazy" {
		t.Fatalf("unset fields changed: %+v", a)
	}
}
