package base

import (
	"errors"
	"io"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/ValentinKolb/vold/rpc/common"
)

// -----------------------------------------------------------
// Node side of the wire protocol
// -----------------------------------------------------------

// HandleFunc processes one request payload and returns the response payload.
// Returning nil closes the connection without an answer.
type HandleFunc func(data []byte) []byte

// Server answers the node side of the protocol on a listener: it accepts the
// handshake for the configured protocols and hands every frame to a HandleFunc.
// Requests of one connection are handled strictly in order.
type Server struct {
	listener  net.Listener
	handler   HandleFunc
	protocols []string
	timeout   time.Duration

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a server accepting the given protocol tags on listener
func NewServer(listener net.Listener, handler HandleFunc, timeout time.Duration, protocols ...string) *Server {
	return &Server{
		listener:  listener,
		handler:   handler,
		protocols: protocols,
		timeout:   timeout,
		conns:     make(map[net.Conn]struct{}),
	}
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetProtocols replaces the accepted protocol tags for new connections
func (s *Server) SetProtocols(protocols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols = protocols
}

// Serve accepts connections until Close is called
func (s *Server) Serve() error {
	Logger.Infof("Starting node server on %s", s.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}
}

// Close stops accepting, drops all open connections and waits for their handlers
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection negotiates the protocol and serves frames until the peer leaves
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	s.deadline(conn)
	tag := make([]byte, 3)
	if _, err := io.ReadFull(conn, tag); err != nil {
		Logger.Debugf("Handshake aborted: %v", err)
		return
	}

	s.mu.Lock()
	accepted := slices.Contains(s.protocols, string(tag))
	s.mu.Unlock()

	if !accepted {
		Logger.Warningf("Rejecting protocol %q from %s", tag, conn.RemoteAddr())
		_, _ = io.WriteString(conn, "no")
		return
	}
	if _, err := io.WriteString(conn, protocolAck); err != nil {
		return
	}

	for {
		s.deadline(conn)
		data, err := readFrame(conn, common.DefaultMaxFrameSize)
		if errors.Is(err, common.ErrPeerClosed) {
			Logger.Debugf("Connection closed by client")
			return
		}
		if err != nil {
			Logger.Errorf("Error handling request: %v", err)
			return
		}

		start := time.Now()
		resp := s.handler(data)
		if resp == nil {
			Logger.Debugf("Handler dropped the connection")
			return
		}
		Logger.Debugf("Processed request took %s", time.Since(start))

		s.deadline(conn)
		if err := writeFrame(conn, resp, 0); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}
	}
}

func (s *Server) deadline(conn net.Conn) {
	if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
