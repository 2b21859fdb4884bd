// Package server tracks room membership for every connected client. The
// Registry is the single authority on who is in which room: the rooms map,
// each member set, and every connection's room field are guarded by one lock
// so the two never disagree.
package server

import (
	"fmt"
	"log"
	"sync"

	"github.com/parlor-chat/parlor/internal/protocol"
)

// DefaultRoom is where every client lands after the handshake. It exists for
// the whole process lifetime.
const DefaultRoom = "general"

// Registry maps room names to member sets. Rooms are created lazily on first
// join and never destroyed; an empty room is harmless and keeping it is the
// simplest policy.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	conns map[*Conn]struct{}
}

// NewRegistry returns a Registry seeded with the default room.
func NewRegistry() *Registry {
	return &Registry{
		rooms: map[string]map[*Conn]struct{}{
			DefaultRoom: {},
		},
		conns: map[*Conn]struct{}{},
	}
}

// Add registers a freshly handshaken connection, places it in the default
// room, announces the arrival to that room, and delivers the membership list
// to the newcomer.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.rooms[DefaultRoom][c] = struct{}{}
	c.room = DefaultRoom
	members := snapshot(r.rooms[DefaultRoom])
	r.mu.Unlock()

	sendAll(members, protocol.Chat{Content: fmt.Sprintf("%s joined %s!", c.Username(), DefaultRoom)})
	r.sendUsersList(c, DefaultRoom)
}

// Join moves the connection into the named room, creating the room if
// needed. The departure notice goes to the old room after removal, the
// arrival notice to the new room after insertion, and the joiner gets a
// fresh membership list. Joining the current room again only refreshes the
// membership list.
func (r *Registry) Join(c *Conn, room string) {
	r.mu.Lock()
	if _, known := r.conns[c]; !known {
		r.mu.Unlock()
		return
	}

	old := c.room
	if old == room {
		r.mu.Unlock()
		r.sendUsersList(c, room)
		return
	}

	var departed []*Conn
	if members, ok := r.rooms[old]; ok {
		delete(members, c)
		departed = snapshot(members)
	}

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = map[*Conn]struct{}{}
	}
	r.rooms[room][c] = struct{}{}
	c.room = room
	arrived := snapshot(r.rooms[room])
	r.mu.Unlock()

	sendAll(departed, protocol.Chat{Content: fmt.Sprintf("%s left the room.", c.Username())})
	sendAll(arrived, protocol.Chat{Content: fmt.Sprintf("%s joined the room!", c.Username())})
	r.sendUsersList(c, room)
}

// Leave removes a disconnecting client from its room and the registry and
// announces the departure to the room it occupied. Calling it again for the
// same connection is a no-op.
func (r *Registry) Leave(c *Conn) {
	r.mu.Lock()
	if _, known := r.conns[c]; !known {
		r.mu.Unlock()
		return
	}
	delete(r.conns, c)

	var remaining []*Conn
	if members, ok := r.rooms[c.room]; ok {
		delete(members, c)
		remaining = snapshot(members)
	}
	r.mu.Unlock()

	sendAll(remaining, protocol.Chat{Content: fmt.Sprintf("%s left the chat.", c.Username())})
}

// RoomOf returns the room the connection currently occupies.
func (r *Registry) RoomOf(c *Conn) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.room
}

// Members returns the usernames in a room in registry iteration order. An
// unknown room yields an empty list.
func (r *Registry) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := []string{}
	for c := range r.rooms[room] {
		users = append(users, c.Username())
	}
	return users
}

// Resolve finds a connection by username. Uniqueness is not enforced at
// handshake, so with duplicates this returns the first match in iteration
// order.
func (r *Registry) Resolve(username string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for c := range r.conns {
		if c.Username() == username {
			return c
		}
	}
	return nil
}

// Broadcast delivers a message to every current member of a room. Membership
// is snapshotted first so concurrent joins and leaves cannot corrupt the
// iteration or skip a delivery within this wave.
func (r *Registry) Broadcast(room string, m protocol.Message) {
	r.mu.RLock()
	members := snapshot(r.rooms[room])
	r.mu.RUnlock()

	sendAll(members, m)
}

// CloseAll closes every registered connection; each read loop then unwinds
// through Leave on its own. Used at shutdown.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	all := snapshot(r.conns)
	r.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
	return len(all)
}

func (r *Registry) sendUsersList(c *Conn, room string) {
	if err := c.Send(protocol.UsersList{Users: r.Members(room)}); err != nil {
		log.Printf("Send to %s (conn %s) failed, closing: %v", c.Username(), c.ID(), err)
		c.Close()
	}
}

func snapshot(set map[*Conn]struct{}) []*Conn {
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// sendAll writes one message to each connection in the snapshot. A failed
// send closes that connection; its own read loop performs the registry
// cleanup, so the snapshot being iterated is never mutated here.
func sendAll(conns []*Conn, m protocol.Message) {
	for _, c := range conns {
		if err := c.Send(m); err != nil {
			log.Printf("Send to %s (conn %s) failed, closing: %v", c.Username(), c.ID(), err)
			c.Close()
		}
	}
}
