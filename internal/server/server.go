// Package server implements the TCP transport: the accept loop, the framed
// per-connection readers, and the concurrent fan-out that executes the
// commands returned by the chat logic.
//
// Concurrency overview
// --------------------
//
//	accept loop      one goroutine; registers the write half in the
//	                 connection table and spawns a reader per connection
//	reader           one goroutine per live connection; decodes frames and
//	                 hands them to the chat logic, then executes the
//	                 returned commands
//	fan-out          one short-lived goroutine per destination; a failure
//	                 on one destination never delays the others
//
// The connection table is guarded by a single mutex.  Target lists are
// snapshotted under the lock and all writes happen after it is released, so
// no network I/O ever runs while the table is locked.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tcpchat/internal/chat"
	"tcpchat/internal/protocol"
)

// Server accepts TCP connections and relays framed messages between them as
// directed by the chat logic.
type Server struct {
	chat *chat.Logic
	log  *logrus.Logger

	ln net.Listener

	mu    sync.Mutex
	conns map[string]*peer
}

// New creates a Server that dispatches inbound frames to logic.
func New(logic *chat.Logic, log *logrus.Logger) *Server {
	return &Server{
		chat:  logic,
		log:   log,
		conns: make(map[string]*peer),
	}
}

// Listen binds addr.  A bind failure is fatal to startup and is returned to
// the caller.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", addr, err)
	}
	s.ln = ln
	s.log.WithField("addr", ln.Addr().String()).Info("accepting connections")
	return nil
}

// Addr returns the bound listener address.  Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop until ctx is cancelled.  Cancellation stops
// accepting, drops every entry in the connection table, and returns nil;
// in-flight fan-outs are not drained.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.serveConn(conn)
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// serveConn is the per-connection reader.  It owns the read half for the
// whole connection lifetime; the write half lives in the connection table
// for fan-outs to address.
func (s *Server) serveConn(conn net.Conn) {
	id := uuid.NewString()
	p := newPeer(id, conn)

	s.mu.Lock()
	s.conns[id] = p
	s.mu.Unlock()

	clog := s.log.WithFields(logrus.Fields{
		"conn_id": id,
		"addr":    conn.RemoteAddr().String(),
	})
	clog.Info("connection opened")

	s.chat.OnUserConnect(id)

	r := bufio.NewReader(conn)
	for {
		payload, err := protocol.ReadFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				clog.WithError(err).Warn("read failed")
			}
			break
		}
		if !utf8.Valid(payload) {
			// Payloads must be UTF-8 text; bad frames are skipped, not fatal.
			clog.Debug("skipping non-UTF-8 frame")
			continue
		}
		s.execute(s.chat.OnUserMessage(id, payload))
	}

	s.removePeer(id)
	s.execute(s.chat.OnUserDisconnect(id))
	conn.Close()
	clog.Info("connection closed")
}

// removePeer deletes id from the connection table if still present.
func (s *Server) removePeer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// shutdown closes the listener and drops the whole connection table, which
// cascades into reader termination.
func (s *Server) shutdown() {
	s.ln.Close()

	s.mu.Lock()
	peers := make([]*peer, 0, len(s.conns))
	for _, p := range s.conns {
		peers = append(peers, p)
	}
	s.conns = make(map[string]*peer)
	s.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
	s.log.Info("server stopped")
}
