package alarmcli

import (
	"errors"
	"testing"

	"github.com/randalarm/randalarm/common"
)

func TestParseDaemonURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantScheme  string
		wantAddress string
	}{
		{"ws with port", "ws://127.0.0.1:9000", SchemeWS, "127.0.0.1:9000"},
		{"tcp with port", "tcp://localhost:9000", SchemeTCP, "localhost:9000"},
		{"bare host port", "127.0.0.1:9001", SchemeWS, "127.0.0.1:9001"},
		{"default port", "ws://localhost", SchemeWS, "localhost:7821"},
		{"endpoint path", "ws://localhost:9000" + common.WSPath, SchemeWS, "localhost:9000"},
		{"uppercase scheme", "WS://localhost:9000", SchemeWS, "localhost:9000"},
		{"ipv6", "ws://[::1]:9000", SchemeWS, "[::1]:9000"},
		{"whitespace", "  ws://localhost:9000  ", SchemeWS, "localhost:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseDaemonURI(tt.uri)
			if err != nil {
				t.Fatalf("ParseDaemonURI() error = %v, want nil", err)
			}
			if u.Scheme != tt.wantScheme {
				t.Errorf("Scheme = %q, want %q", u.Scheme, tt.wantScheme)
			}
			if u.Address != tt.wantAddress {
				t.Errorf("Address = %q, want %q", u.Address, tt.wantAddress)
			}
		})
	}
}

func TestParseDaemonURI_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{"empty", "", ErrEmptyURI},
		{"spaces", "   ", ErrEmptyURI},
		{"unix scheme", "unix:///tmp/x.sock", ErrUnsupportedScheme},
		{"http scheme", "http://localhost:9000", ErrUnsupportedScheme},
		{"no host", "ws://:9000", ErrInvalidAddress},
		{"bad port", "ws://localhost:99999", ErrInvalidAddress},
		{"other path", "ws://localhost:9000/other", ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDaemonURI(tt.uri)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseDaemonURI(%q) error = %v, want %v", tt.uri, err, tt.wantErr)
			}
		})
	}
}

func TestDaemonURI_URLs(t *testing.T) {
	u := LocalURI(0)
	if u.Address != "127.0.0.1:7821" {
		t.Fatalf("unexpected local address %q", u.Address)
	}
	if got := u.WSURL(); got != "ws://127.0.0.1:7821/jsonrpc/ws" {
		t.Errorf("WSURL() = %q", got)
	}
	if got := u.HealthURL(); got != "http://127.0.0.1:7821/health" {
		t.Errorf("HealthURL() = %q", got)
	}
	if got := LocalURI(9100).String(); got != "ws://127.0.0.1:9100" {
		t.Errorf("String() = %q", got)
	}
}

func TestDaemonURI_IsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:7821", true},
		{"localhost:7821", true},
		{"[::1]:7821", true},
		{"10.0.0.2:7821", false},
		{"alarms.lan:7821", false},
		{"no-port", false},
	}
	for _, tt := range tests {
		u := &DaemonURI{Scheme: SchemeWS, Address: tt.addr}
		if got := u.IsLoopback(); got != tt.want {
			t.Errorf("IsLoopback(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
