// Package server exposes the optional WebSocket gateway: an HTTP endpoint
// that upgrades to WebSocket and bridges those clients into the same
// registry and router as raw TCP clients. Each WebSocket text message
// carries exactly one protocol record, so no stream framing is needed on
// this transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parlor-chat/parlor/internal/protocol"
)

const (
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
)

type gateway struct {
	s        *Server
	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener

	origins  map[string]struct{}
	allowAll bool
}

func newGateway(s *Server) *gateway {
	g := &gateway{s: s}

	normalized, allowAll := normalizeOrigins(s.cfg.Gateway.AllowedOrigins)
	g.allowAll = allowAll
	g.origins = make(map[string]struct{}, len(normalized))
	for _, origin := range normalized {
		g.origins[origin] = struct{}{}
	}

	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", g.healthHandler)
	mux.HandleFunc("/ws", g.wsHandler)
	g.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return g
}

func (g *gateway) start() error {
	ln, err := net.Listen("tcp", g.s.cfg.Gateway.Addr)
	if err != nil {
		return fmt.Errorf("server: bind gateway %s: %w", g.s.cfg.Gateway.Addr, err)
	}
	g.ln = ln
	log.Printf("WebSocket gateway listening on %s", ln.Addr())

	go func() {
		if err := g.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Gateway server error: %v", err)
		}
	}()
	return nil
}

func (g *gateway) addr() string {
	if g.ln == nil {
		return g.s.cfg.Gateway.Addr
	}
	return g.ln.Addr().String()
}

func (g *gateway) stop(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := g.srv.Shutdown(ctx); err != nil {
		log.Printf("Gateway shutdown error: %v", err)
	}
}

// healthHandler reports server liveness as plain text.
func (g *gateway) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Parlor server is running!")
}

// wsHandler upgrades the request and runs the connection like any other:
// identity record first, then decode-dispatch until the peer goes away.
func (g *gateway) wsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c, err := g.wsHandshake(ws)
	if err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("WebSocket handshake with %s failed: %v", ws.RemoteAddr(), err)
		}
		_ = ws.Close()
		return
	}

	g.s.attach(c)
	defer g.s.detach(c)

	g.readLoop(c, ws)
}

func (g *gateway) wsHandshake(ws *websocket.Conn) (*Conn, error) {
	ws.SetReadLimit(int64(g.s.cfg.MaxMessageSize))

	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("malformed identity record: %w", err)
	}
	hello, ok := msg.(protocol.Hello)
	if !ok {
		return nil, fmt.Errorf("first record was %q, want identity", msg.Kind())
	}

	tr := &wsTransport{ws: ws, writeTimeout: writeTimeout}
	return newConn(tr, hello.Username, g.s.cfg.RateLimit), nil
}

func (g *gateway) readLoop(c *Conn, ws *websocket.Conn) {
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go g.pingLoop(c, stop)

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if !isExpectedCloseError(err) && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error from %s (%s): %v", c.Username(), c.RemoteAddr(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			// One record per WebSocket message means a bad message never
			// desynchronizes anything; reject it and move on.
			log.Printf("Protocol error from %s: %v", c.Username(), err)
			g.s.router.sendToSender(c, protocol.Chat{Content: "System: unsupported message."})
			continue
		}
		g.s.dispatch(c, msg)
	}
}

func (g *gateway) pingLoop(c *Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tr, ok := c.tr.(*wsTransport)
			if !ok {
				return
			}
			if err := tr.ping(); err != nil {
				c.Close()
				return
			}
		}
	}
}

// wsTransport frames records as WebSocket text messages. The mutex
// serializes data writes and pings; gorilla/websocket permits only one
// concurrent writer.
type wsTransport struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) WriteFrame(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ws.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.ws.WriteMessage(websocket.TextMessage, p)
}

func (t *wsTransport) ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ws.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.ws.WriteMessage(websocket.PingMessage, nil)
}

func (t *wsTransport) Close() error {
	return t.ws.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.ws.RemoteAddr().String()
}

func (g *gateway) checkOrigin(r *http.Request) bool {
	if g.isOriginAllowed(r) {
		return true
	}
	log.Printf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}

func (g *gateway) isOriginAllowed(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		// Non-browser clients send no Origin header; only browsers need the
		// cross-origin guard.
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}
	if g.allowAll {
		return true
	}
	_, exists := g.origins[normalized]
	return exists
}

func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Printf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}
		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
