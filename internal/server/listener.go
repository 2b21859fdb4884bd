// Package server owns the process-wide chat state: the TCP listener, the
// room registry, the blocklist filter, and the optional WebSocket gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/parlor-chat/parlor/internal/filter"
	"github.com/parlor-chat/parlor/internal/protocol"
)

const (
	readBufferSize = 4096
	writeTimeout   = 10 * time.Second
)

// Server is the explicit context object for one chat server process. It is
// constructed at startup, shared by every connection worker, and torn down
// by Shutdown.
type Server struct {
	cfg      *Config
	registry *Registry
	filter   *filter.Filter
	router   *Router

	ln      net.Listener
	gateway *gateway

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Server from the configuration: the blocklist is loaded from
// the configured word file and the registry is seeded with the default room.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.sanitize()

	f, err := filter.New(filter.NewFileStore(cfg.BlocklistPath))
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d words into the blocklist", len(f.Words()))

	ctx, cancel := context.WithCancel(context.Background())
	registry := NewRegistry()
	s := &Server{
		cfg:      cfg,
		registry: registry,
		filter:   f,
		router:   NewRouter(registry, f),
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.Gateway.Addr != "" {
		s.gateway = newGateway(s)
	}
	return s, nil
}

// Start binds the listener(s) and begins accepting connections. Failure to
// bind is the one fatal startup error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	log.Printf("Server listening on %s", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop()

	if s.gateway != nil {
		if err := s.gateway.start(); err != nil {
			_ = ln.Close()
			return err
		}
	}
	return nil
}

// Addr returns the bound TCP address, useful when configured with port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.Addr
	}
	return s.ln.Addr().String()
}

// GatewayAddr returns the bound WebSocket gateway address, or "" when the
// gateway is disabled.
func (s *Server) GatewayAddr() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		sock, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}

		log.Printf("Connection from %s established", sock.RemoteAddr())
		s.wg.Add(1)
		go s.handleConn(sock)
	}
}

// handleConn performs the identity handshake and then runs the connection's
// decode-dispatch loop until EOF or error.
func (s *Server) handleConn(sock net.Conn) {
	defer s.wg.Done()

	tr := &tcpTransport{sock: sock, writeTimeout: writeTimeout}
	dec := protocol.NewDecoder(s.cfg.MaxMessageSize)
	buf := make([]byte, readBufferSize)

	c, pending, err := s.handshake(sock, tr, dec, buf)
	if err != nil {
		if err != io.EOF && !isExpectedCloseError(err) {
			log.Printf("Handshake with %s failed: %v", sock.RemoteAddr(), err)
		}
		_ = sock.Close()
		return
	}

	s.attach(c)
	defer s.detach(c)

	// Records that arrived in the same bytes as the handshake.
	for _, m := range pending {
		s.dispatch(c, m)
	}

	for {
		n, err := sock.Read(buf)
		if n > 0 {
			msgs, ferr := dec.Feed(buf[:n])
			for _, m := range msgs {
				s.dispatch(c, m)
			}
			if ferr != nil {
				s.handleDecodeError(c, ferr)
			}
		}
		if err != nil {
			if err != io.EOF && !isExpectedCloseError(err) {
				log.Printf("Read error from %s (%s): %v", c.Username(), c.RemoteAddr(), err)
			}
			return
		}
	}
}

// handshake reads until the first complete record arrives, which must be the
// identity record. Any further records decoded from the same bytes are
// returned for dispatch after registration. The read blocks with no
// deadline, matching the protocol's handshake behavior.
func (s *Server) handshake(sock net.Conn, tr transport, dec *protocol.Decoder, buf []byte) (*Conn, []protocol.Message, error) {
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			msgs, ferr := dec.Feed(buf[:n])
			if len(msgs) > 0 {
				hello, ok := msgs[0].(protocol.Hello)
				if !ok {
					return nil, nil, fmt.Errorf("first record was %q, want identity", msgs[0].Kind())
				}
				return newConn(tr, hello.Username, s.cfg.RateLimit), msgs[1:], nil
			}
			if ferr != nil {
				return nil, nil, fmt.Errorf("malformed identity record: %w", ferr)
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}
}

// attach registers the connection and announces it; detach is its single
// cleanup path, run when the read loop exits for any reason.
func (s *Server) attach(c *Conn) {
	s.registry.Add(c)
	log.Printf("%s identified from %s as conn %s, joined %s", c.Username(), c.RemoteAddr(), c.ID(), DefaultRoom)
}

func (s *Server) detach(c *Conn) {
	s.registry.Leave(c)
	c.Close()
	log.Printf("%s disconnected (conn %s)", c.Username(), c.ID())
}

func (s *Server) dispatch(c *Conn, m protocol.Message) {
	if !c.admit() {
		log.Printf("Rate limit exceeded for %s (conn %s, %d per %s); discarding message",
			c.Username(), c.ID(), s.cfg.RateLimit.Burst, s.cfg.RateLimit.RefillInterval)
		return
	}
	s.router.Dispatch(c, m)
}

func (s *Server) handleDecodeError(c *Conn, err error) {
	if errors.Is(err, protocol.ErrFraming) {
		// The decoder already dropped its buffer to resync; the connection
		// itself stays up.
		log.Printf("Framing error from %s, receive buffer reset: %v", c.Username(), err)
		return
	}
	log.Printf("Protocol error from %s: %v", c.Username(), err)
	s.router.sendToSender(c, protocol.Chat{Content: "System: unsupported message."})
}

// Shutdown closes the listeners and every open connection, then waits for
// the connection workers to finish or the timeout to expire.
func (s *Server) Shutdown(timeout time.Duration) error {
	log.Println("Initiating server shutdown...")
	s.cancel()

	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.gateway != nil {
		s.gateway.stop(timeout)
	}

	n := s.registry.CloseAll()
	log.Printf("Closed %d client connections", n)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Server shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Server shutdown timeout reached, some workers may still be running")
		return context.DeadlineExceeded
	}
}
