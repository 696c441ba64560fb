// Package server implements the non-blocking TCP acceptor that dispatches
// framed requests onto a worker pool against a pluggable, cloneable engine.
package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	kvs "github.com/0xcrust/log-kv"
	"github.com/0xcrust/log-kv/pool"
	"github.com/0xcrust/log-kv/protocol"
)

// ShutdownHandle is a single-shot signal that stops a Server's acceptor. It
// is safe to call Shutdown more than once or from multiple goroutines.
type ShutdownHandle struct {
	once *sync.Once
	ch   chan struct{}
}

// Shutdown signals the associated Server to stop accepting new connections.
// Shutdown is cooperative at the accept boundary only: in-flight connection
// jobs run to their natural end-of-stream rather than being cancelled.
func (h ShutdownHandle) Shutdown() {
	h.once.Do(func() { close(h.ch) })
}

// Server drives a non-blocking TCP acceptor, dispatching each accepted
// connection's request stream to a cloned engine handle via a worker pool.
// E is the concrete engine type (e.g. *kvs.Store); it must be cloneable so
// every connection job can own an independent handle.
type Server[E kvs.CloneableEngine[E]] struct {
	ln           *net.TCPListener
	engine       E
	pool         pool.Pool
	logger       log.Logger
	metrics      *serverMetrics
	pollInterval time.Duration
	shutdown     <-chan struct{}
}

// Bind listens on addr and returns a Server paired with the ShutdownHandle
// that stops it. The listener is not yet accepting connections until Run is
// called.
func Bind[E kvs.CloneableEngine[E]](addr string, engine E, p pool.Pool, opts ...Option) (*Server[E], ShutdownHandle, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, ShutdownHandle{}, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, ShutdownHandle{}, err
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	shutdownCh := make(chan struct{})
	handle := ShutdownHandle{once: &sync.Once{}, ch: shutdownCh}

	s := &Server[E]{
		ln:           ln,
		engine:       engine,
		pool:         p,
		logger:       cfg.logger,
		metrics:      newServerMetrics(cfg.reg),
		pollInterval: cfg.pollInterval,
		shutdown:     shutdownCh,
	}
	return s, handle, nil
}

// Addr returns the address the listener is bound to, useful for tests that
// bind to port 0.
func (s *Server[E]) Addr() net.Addr { return s.ln.Addr() }

// Run drives the accept loop until Shutdown is called on the paired handle.
// It returns nil on a clean shutdown.
func (s *Server[E]) Run() error {
	defer s.ln.Close()

	for {
		select {
		case <-s.shutdown:
			return nil
		default:
		}

		if err := s.ln.SetDeadline(time.Now().Add(s.pollInterval)); err != nil {
			return err
		}
		conn, err := s.ln.AcceptTCP()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			level.Error(s.logger).Log("msg", "accept error", "err", err)
			s.metrics.acceptErrorsTotal.Inc()
			continue
		}

		s.metrics.connectionsTotal.Inc()
		engineHandle := s.engine.Clone()
		s.pool.Spawn(func() { s.handleConn(conn, engineHandle) })
	}
}

func (s *Server[E]) handleConn(conn net.Conn, engine E) {
	defer conn.Close()

	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	for {
		req, err := dec.DecodeRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				level.Error(s.logger).Log("msg", "decode error, closing connection", "err", err)
				s.metrics.decodeErrorsTotal.Inc()
			}
			return
		}

		s.metrics.requestsTotal.Inc()
		resp := s.dispatch(req, engine)
		if err := enc.EncodeResponse(resp); err != nil {
			level.Error(s.logger).Log("msg", "encode error, closing connection", "err", err)
			return
		}
	}
}

func (s *Server[E]) dispatch(req protocol.Request, engine E) protocol.Response {
	cmd := req.Command
	switch {
	case cmd.Get != nil:
		value, ok, err := engine.Get(cmd.Get.Key)
		if err != nil {
			return protocol.Response{ID: req.ID, Result: protocol.ErrMsg(err.Error())}
		}
		if !ok {
			return protocol.Response{ID: req.ID, Result: protocol.OkNone()}
		}
		return protocol.Response{ID: req.ID, Result: protocol.OkValue(value)}

	case cmd.Set != nil:
		if err := engine.Set(cmd.Set.Key, cmd.Set.Value); err != nil {
			return protocol.Response{ID: req.ID, Result: protocol.ErrMsg(err.Error())}
		}
		return protocol.Response{ID: req.ID, Result: protocol.OkNone()}

	case cmd.Rm != nil:
		if err := engine.Remove(cmd.Rm.Key); err != nil {
			return protocol.Response{ID: req.ID, Result: protocol.ErrMsg(err.Error())}
		}
		return protocol.Response{ID: req.ID, Result: protocol.OkNone()}

	default:
		return protocol.Response{ID: req.ID, Result: protocol.ErrMsg("malformed command")}
	}
}
