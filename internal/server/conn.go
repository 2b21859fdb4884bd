// Package server manages individual chat connections: identity, current
// room, and the serialized send path shared by every transport.
package server

import (
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/parlor-chat/parlor/internal/protocol"
)

// transport is the write half of a client connection. TCP sockets and
// WebSocket sessions both satisfy it; the read side differs per transport
// and lives with the listener that owns it.
type transport interface {
	// WriteFrame writes one encoded record. Implementations apply their own
	// write deadline so a stalled peer cannot block a broadcast forever.
	WriteFrame(p []byte) error
	Close() error
	RemoteAddr() string
}

// Conn is one connected chat client. The username is fixed at handshake; the
// room field is mutable and guarded by the owning Registry's lock so that it
// can never disagree with room membership.
type Conn struct {
	id       string
	username string
	tr       transport
	limiter  *limiter

	writeMu sync.Mutex
	closed  atomic.Bool

	// room is read and written only while holding the Registry lock.
	room string
}

func newConn(tr transport, username string, rl RateLimitConfig) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		username: username,
		tr:       tr,
		limiter:  newLimiter(rl),
	}
}

// ID returns the opaque per-connection handle. Usernames are not unique, so
// log lines carry it to tell sessions apart.
func (c *Conn) ID() string { return c.id }

// admit reports whether an inbound record fits the connection's rate budget.
func (c *Conn) admit() bool { return c.limiter.admit(time.Now()) }

// Username returns the identity bound at handshake.
func (c *Conn) Username() string { return c.username }

// RemoteAddr returns the peer address for logging.
func (c *Conn) RemoteAddr() string { return c.tr.RemoteAddr() }

// Send encodes the message and writes it as one frame. Writes are serialized
// per connection; concurrent broadcasters never interleave partial frames.
func (c *Conn) Send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return net.ErrClosed
	}
	return c.tr.WriteFrame(data)
}

// Close releases the transport. It is safe to call from any goroutine and
// more than once; the connection's read loop observes the closed transport
// and performs registry cleanup exactly once.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		if err := c.tr.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection from %s: %v", c.RemoteAddr(), err)
		}
	}
}

// tcpTransport frames records directly onto a TCP socket.
type tcpTransport struct {
	sock         net.Conn
	writeTimeout time.Duration
}

func (t *tcpTransport) WriteFrame(p []byte) error {
	if t.writeTimeout > 0 {
		if err := t.sock.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := t.sock.Write(p)
	return err
}

func (t *tcpTransport) Close() error {
	return t.sock.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.sock.RemoteAddr().String()
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
