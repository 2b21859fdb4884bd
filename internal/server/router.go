// Package server routes decoded client messages to the registry and the
// blocklist filter. All router side effects flow through connection sends
// and registry operations; it touches neither storage nor sockets directly.
package server

import (
	"fmt"
	"log"

	"github.com/parlor-chat/parlor/internal/filter"
	"github.com/parlor-chat/parlor/internal/protocol"
)

// Router dispatches one decoded inbound message at a time per connection;
// the connection's read loop provides the FIFO ordering.
type Router struct {
	registry *Registry
	filter   *filter.Filter
}

// NewRouter wires a Router to the shared registry and filter.
func NewRouter(registry *Registry, f *filter.Filter) *Router {
	return &Router{registry: registry, filter: f}
}

// Dispatch handles one message from an identified connection.
func (rt *Router) Dispatch(c *Conn, m protocol.Message) {
	switch msg := m.(type) {
	case protocol.Chat:
		rt.handleChat(c, msg)
	case protocol.Whisper:
		rt.handleWhisper(c, msg)
	case protocol.JoinRoom:
		rt.registry.Join(c, msg.Room)
	case protocol.GetUsers:
		rt.handleGetUsers(c, msg)
	case protocol.AddBlockedWord:
		rt.handleAddBlockedWord(c, msg)
	case protocol.GetBlockedWords:
		rt.sendToSender(c, protocol.BlockedWordsList{Words: rt.filter.Words()})
	default:
		// Valid record, but not something a client may send mid-session
		// (a second handshake, a server-to-client frame). Tell the sender
		// with an existing frame type instead of dropping it silently.
		log.Printf("Unsupported message %T from %s (%s)", m, c.Username(), c.RemoteAddr())
		rt.sendToSender(c, protocol.Chat{Content: "System: unsupported message."})
	}
}

func (rt *Router) handleChat(c *Conn, msg protocol.Chat) {
	censored := rt.filter.Censor(msg.Content)
	room := rt.registry.RoomOf(c)
	rt.registry.Broadcast(room, protocol.Chat{
		Content: fmt.Sprintf("%s: %s", c.Username(), censored),
	})
}

func (rt *Router) handleWhisper(c *Conn, msg protocol.Whisper) {
	censored := rt.filter.Censor(msg.Content)
	target := rt.registry.Resolve(msg.Target)
	if target == nil {
		// The protocol defines no negative acknowledgment for a missing
		// target; the whisper vanishes.
		log.Printf("Whisper from %s to unknown user %q dropped", c.Username(), msg.Target)
		return
	}
	if err := target.Send(protocol.Whisper{Sender: c.Username(), Content: censored}); err != nil {
		log.Printf("Send to %s (conn %s) failed, closing: %v", target.Username(), target.ID(), err)
		target.Close()
	}
}

func (rt *Router) handleGetUsers(c *Conn, msg protocol.GetUsers) {
	room := msg.Room
	if room == "" {
		room = rt.registry.RoomOf(c)
	}
	rt.sendToSender(c, protocol.UsersList{Users: rt.registry.Members(room)})
}

func (rt *Router) handleAddBlockedWord(c *Conn, msg protocol.AddBlockedWord) {
	added, err := rt.filter.Add(msg.Word)
	if err != nil {
		log.Printf("Failed to persist blocked word from %s: %v", c.Username(), err)
		return
	}
	if !added {
		return
	}
	room := rt.registry.RoomOf(c)
	rt.registry.Broadcast(room, protocol.Chat{
		Content: fmt.Sprintf("System: %s added a word to the blocklist.", c.Username()),
	})
}

func (rt *Router) sendToSender(c *Conn, m protocol.Message) {
	if err := c.Send(m); err != nil {
		log.Printf("Send to %s (conn %s) failed, closing: %v", c.Username(), c.ID(), err)
		c.Close()
	}
}
