package alarmcli

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/randalarm/randalarm/common"
)

// DaemonURI represents a parsed daemon address.
type DaemonURI struct {
	Scheme  string // "ws" or "tcp"
	Address string // host:port
}

// Supported URI schemes
const (
	SchemeWS  = "ws"
	SchemeTCP = "tcp"
)

// Errors
var (
	ErrEmptyURI          = errors.New("daemon URI cannot be empty")
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
	ErrInvalidAddress    = errors.New("invalid address in URI")
	ErrRemoteDaemon      = errors.New("remote daemon is not reachable")
)

// LocalURI returns the loopback address of a daemon on port.
func LocalURI(port int) *DaemonURI {
	if port <= 0 {
		port = common.DefaultPort
	}
	return &DaemonURI{
		Scheme:  SchemeWS,
		Address: net.JoinHostPort(common.LoopbackHost, strconv.Itoa(port)),
	}
}

// ParseDaemonURI parses "ws://host:port", "tcp://host:port" or a bare
// "host:port". A missing port means the default one.
func ParseDaemonURI(rawURI string) (*DaemonURI, error) {
	rawURI = strings.TrimSpace(rawURI)
	if rawURI == "" {
		return nil, ErrEmptyURI
	}
	if !strings.Contains(rawURI, "://") {
		rawURI = SchemeWS + "://" + rawURI
	}
	parsed, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case SchemeWS, SchemeTCP:
	default:
		return nil, ErrUnsupportedScheme
	}
	if parsed.Host == "" {
		return nil, ErrInvalidAddress
	}
	if parsed.Path != "" && parsed.Path != "/" && parsed.Path != common.WSPath {
		return nil, fmt.Errorf("%w: unexpected path %q", ErrInvalidAddress, parsed.Path)
	}
	host, port := parsed.Hostname(), parsed.Port()
	if host == "" {
		return nil, ErrInvalidAddress
	}
	if port == "" {
		port = strconv.Itoa(common.DefaultPort)
	} else if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("%w: port %q", ErrInvalidAddress, port)
	}
	return &DaemonURI{Scheme: scheme, Address: net.JoinHostPort(host, port)}, nil
}

// WSURL is the JSON-RPC WebSocket endpoint.
func (u *DaemonURI) WSURL() string {
	return "ws://" + u.Address + common.WSPath
}

// HealthURL is the plain HTTP health probe.
func (u *DaemonURI) HealthURL() string {
	return "http://" + u.Address + common.HealthPath
}

// IsLoopback reports whether the daemon runs on this machine, where a
// client may start it.
func (u *DaemonURI) IsLoopback() bool {
	host, _, err := net.SplitHostPort(u.Address)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (u *DaemonURI) String() string {
	return u.Scheme + "://" + u.Address
}
