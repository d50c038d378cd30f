package respserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/redbasin/basin/internal/metrics"
	"github.com/redbasin/basin/internal/runtime"
	"github.com/redbasin/basin/pkg/log"
	"github.com/redbasin/basin/pkg/netutil"
)

// Options configures the RESP listener.
type Options struct {
	Addr string
	// Namespace every connection operates in. Defaults to the config's
	// default namespace when empty.
	Namespace string
	// KeepaliveInterval in seconds for accepted connections. Zero uses the
	// netutil default.
	KeepaliveInterval int

	Logger  log.Logger
	Metrics *metrics.Metrics
}

// Server accepts Redis protocol clients and serves stream commands.
type Server struct {
	rt        *runtime.Runtime
	addr      string
	namespace string
	keepalive int
	logger    log.Logger
	metrics   *metrics.Metrics

	mu sync.Mutex
	ln net.Listener
}

// New builds a Server around the runtime.
func New(rt *runtime.Runtime, opts Options) *Server {
	ns := opts.Namespace
	if ns == "" {
		ns = rt.Config().DefaultNamespaceName
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		rt:        rt,
		addr:      opts.Addr,
		namespace: ns,
		keepalive: opts.KeepaliveInterval,
		logger:    logger.WithComponent("resp"),
		metrics:   m,
	}
}

// Serve accepts connections on ln until the context is canceled or the
// listener is closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("resp server listening", log.Str("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.serveConn(ctx, conn)
	}
}

// ListenAndServe listens on the configured address and serves until the
// context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Addr returns the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()
	defer conn.Close()

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := netutil.SetTCPNoDelay(tc, true); err != nil {
			s.logger.Debug("set nodelay", log.Err(err))
		}
		interval := s.keepalive
		if interval <= 0 {
			interval = 120
		}
		if err := netutil.SetTCPKeepalive(tc, interval); err != nil {
			s.logger.Debug("set keepalive", log.Err(err))
		}
	}

	peer := conn.RemoteAddr().String()
	s.logger.Debug("client connected", log.Str("peer", peer))

	br := bufio.NewReader(conn)
	w := newReplyWriter(conn)
	for {
		if ctx.Err() != nil {
			return
		}
		args, err := readCommand(br)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("read command", log.Str("peer", peer), log.Err(err))
				w.error("Protocol error: " + err.Error())
				w.flush()
			}
			return
		}

		cmdCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		quit := s.handleCommand(cmdCtx, w, args)
		cancel()

		if err := w.flush(); err != nil {
			s.logger.Debug("write reply", log.Str("peer", peer), log.Err(err))
			return
		}
		if quit {
			return
		}
	}
}
