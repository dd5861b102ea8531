package server

import (
	"context"
	"net/http"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/internal/background"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
)

// Custom JSON-RPC error codes.
const (
	codeInvalidParams = jrpc2.Code(-32602)
)

// Backend is the background authority the daemon serves.
type Backend interface {
	UpdateAlarms(alarms []*alarmlib.Alarm)
	Replay(p background.Pusher)
}

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret   string // Auth token (required -- empty means every session is refused)
	Port     int    // Loopback port
	MaxConns int    // Concurrent connection cap
}

// RPCServer holds the method table and serves one jrpc2 server per
// WebSocket session.
type RPCServer struct {
	secret   string
	backend  Backend
	hub      *SessionHub
	methods  handler.Map
	log      logger.Logger
}

// NewRPCServer creates a new RPCServer with its method handlers.
func NewRPCServer(cfg *RPCConfig, b Backend, n *SessionHub, l logger.Logger) *RPCServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	rs := &RPCServer{
		secret:   cfg.Secret,
		backend:  b,
		hub:      n,
		log:      l,
	}
	rs.methods = handler.Map{
		string(common.UPDATE_ALARMS): handler.New(rs.updateAlarms),
	}
	return rs
}

// updateAlarms replaces the background replica with a session snapshot.
func (rs *RPCServer) updateAlarms(_ context.Context, p *common.UpdateAlarmsParams) (*common.EmptyResult, error) {
	if p == nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: alarms"}
	}
	for _, a := range p.Alarms {
		if a == nil || a.ID == "" {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "alarm without id"}
		}
	}
	rs.backend.UpdateAlarms(p.Alarms)
	return &common.EmptyResult{}, nil
}

// sessionMethods holds a session's calls back until ready is closed.
func (rs *RPCServer) sessionMethods(ready <-chan struct{}) handler.Map {
	m := make(handler.Map, len(rs.methods))
	for name, h := range rs.methods {
		m[name] = func(ctx context.Context, req *jrpc2.Request) (any, error) {
			select {
			case <-ready:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return h(ctx, req)
		}
	}
	return m
}

// handleWS upgrades the connection and serves it until the session leaves.
// Unresolved rings are replayed as soon as the session is registered. The
// session's calls wait for the replay, so the answer to its first snapshot
// reaches it after every replayed push.
func (rs *RPCServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		rs.log.Warning("server: websocket accept: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	ch := &wsChannel{conn: conn, ctx: r.Context()}
	ready := make(chan struct{})
	srv := jrpc2.NewServer(rs.sessionMethods(ready), &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(ch)

	rs.hub.Register(srv)
	rs.log.Info("server: session connected (%d open)", rs.hub.Count())
	rs.backend.Replay(srv)
	close(ready)

	if err := srv.Wait(); err != nil {
		rs.log.Info("server: session ended: %v", err)
	}
	rs.hub.Unregister(srv)
}
