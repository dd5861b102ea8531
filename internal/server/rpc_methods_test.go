package server

import (
	"context"
	"errors"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

func TestUpdateAlarms(t *testing.T) {
	valid := alarmlib.NewAlarm(alarmlib.DefaultSettings(alarmlib.DefaultSounds[0].File))

	tests := []struct {
		name    string
		params  *common.UpdateAlarmsParams
		wantErr bool
	}{
		{"nil params", nil, true},
		{"missing id", &common.UpdateAlarmsParams{Alarms: []*alarmlib.Alarm{{Name: "x"}}}, true},
		{"nil alarm", &common.UpdateAlarmsParams{Alarms: []*alarmlib.Alarm{nil}}, true},
		{"empty snapshot", &common.UpdateAlarmsParams{}, false},
		{"one alarm", &common.UpdateAlarmsParams{Alarms: []*alarmlib.Alarm{valid}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			rs := NewRPCServer(&RPCConfig{Secret: "x"}, b, NewSessionHub(nil), nil)
			res, err := rs.updateAlarms(context.Background(), tt.params)
			if tt.wantErr {
				var je *jrpc2.Error
				if !errors.As(err, &je) || je.Code != codeInvalidParams {
					t.Fatalf("expected invalid params error, got %v", err)
				}
				if len(b.updates) != 0 {
					t.Fatal("rejected snapshot must not reach the backend")
				}
				return
			}
			if err != nil || res == nil {
				t.Fatalf("unexpected result %v, %v", res, err)
			}
			if len(b.updates) != 1 {
				t.Fatalf("expected one update, got %d", len(b.updates))
			}
		})
	}
}
