package common

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/randalarm/randalarm/pkg/alarmlib"
)

func TestNotificationActionParamsJSON(t *testing.T) {
	b, err := json.Marshal(NotificationActionParams{Action: ActionSnooze, AlarmID: "a1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(b); got != `{"action":"snooze","alarmId":"a1"}` {
		t.Fatalf("unexpected encoding %s", got)
	}
}

func TestAlarmTriggeredParamsCarriesInstant(t *testing.T) {
	at := time.Date(2024, 1, 2, 7, 13, 0, 0, time.UTC)
	a := alarmlib.NewAlarm(alarmlib.DefaultSettings(alarmlib.DefaultSounds[0].File))
	a.NextFire = &at
	b, err := json.Marshal(AlarmTriggeredParams{Alarm: a})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"nextAlarmTime":"2024-01-02T07:13:00Z"`) {
		t.Fatalf("instant missing from %s", b)
	}
	var out AlarmTriggeredParams
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Alarm == nil || out.Alarm.NextFire == nil || !out.Alarm.NextFire.Equal(at) {
		t.Fatalf("instant lost: %+v", out.Alarm)
	}
}
