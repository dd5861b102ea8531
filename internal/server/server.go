package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/logger"
	"golang.org/x/net/netutil"
)

// Server exposes the background authority to sessions on a loopback
// port.
type Server struct {
	log      logger.Logger
	rpc      *RPCServer
	port     int
	maxConns int
	listener net.Listener
	http     *http.Server
	mu       sync.Mutex
}

// NewServer creates a Server. Pushes go out through n, which the
// background worker broadcasts on as well.
func NewServer(l logger.Logger, cfg *RPCConfig, b Backend, n *SessionHub) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	port := cfg.Port
	if port == 0 {
		port = common.DefaultPort
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = common.DefaultMaxConns
	}
	return &Server{
		log:      l,
		rpc:      NewRPCServer(cfg, b, n, l),
		port:     port,
		maxConns: maxConns,
	}
}

// Listen binds the loopback listener. A negative port picks a free one.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	port := s.port
	if port < 0 {
		port = 0
	}
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", common.LoopbackHost, port))
	if err != nil {
		return fmt.Errorf("error listening: %w", err)
	}
	s.listener = netutil.LimitListener(l, s.maxConns)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	s.http = &http.Server{
		Handler:           s.rpc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// sessions outlive Shutdown once hijacked; tie them to ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	hs, l := s.http, s.listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.log.Info("server: listening on %s", l.Addr())
	err := hs.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http == nil {
		if s.listener != nil {
			err := s.listener.Close()
			s.listener = nil
			return err
		}
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	if err != nil {
		s.log.Warning("server: shutdown: %v", err)
	}
	s.http = nil
	s.listener = nil
	return err
}
