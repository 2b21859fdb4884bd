// Package client implements the persistent connection half of the chat:
// handshake, the receive loop, and the command methods that produce
// protocol traffic.
package client

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"github.com/parlor-chat/parlor/internal/protocol"
)

// DefaultAdminPassword is the in-band shared secret for the become-admin
// command.
const DefaultAdminPassword = "admin123"

// defaultRoom matches the room the server places every client in after the
// handshake.
const defaultRoom = "general"

const eventBufferSize = 64

// Session is one client's connection to the chat server. Command methods
// may be called from any goroutine; incoming traffic arrives on Events.
type Session struct {
	sock     net.Conn
	username string

	writeMu sync.Mutex

	mu            sync.Mutex
	room          string
	isAdmin       bool
	adminPassword string
	eventsClosed  bool

	events    chan Event
	closeOnce sync.Once
}

// Dial connects to the server, performs the identity handshake, and starts
// the receive loop.
func Dial(addr, username string) (*Session, error) {
	sock, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect %s: %w", addr, err)
	}
	return Attach(sock, username)
}

// Attach runs a session over an already-established connection. The
// identity record is sent before the receive loop starts.
func Attach(sock net.Conn, username string) (*Session, error) {
	s := &Session{
		sock:          sock,
		username:      username,
		room:          defaultRoom,
		adminPassword: DefaultAdminPassword,
		events:        make(chan Event, eventBufferSize),
	}
	if err := s.send(protocol.Hello{Username: username}); err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("client: handshake: %w", err)
	}
	go s.receiveLoop()
	return s, nil
}

// Events returns the stream of incoming and client-generated events. The
// channel is closed after a DisconnectedEvent.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Username returns the identity this session connected with.
func (s *Session) Username() string { return s.username }

// Room returns the room this session last asked to join.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// SetAdminPassword overrides the shared secret checked by the /admin
// command.
func (s *Session) SetAdminPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminPassword = password
}

// Say broadcasts a message to the session's current room.
func (s *Session) Say(content string) error {
	return s.send(protocol.Chat{Content: content})
}

// Whisper sends a direct message to the named user.
func (s *Session) Whisper(target, content string) error {
	return s.send(protocol.Whisper{Target: target, Content: content})
}

// Join moves the session into a room and requests its membership list.
func (s *Session) Join(room string) error {
	if err := s.send(protocol.JoinRoom{Room: room}); err != nil {
		return err
	}
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
	return s.RequestUsers(room)
}

// RequestUsers asks for a room's membership; an empty room means the
// current one.
func (s *Session) RequestUsers(room string) error {
	return s.send(protocol.GetUsers{Room: room})
}

// AddBlockedWord submits a word for the server's blocklist.
func (s *Session) AddBlockedWord(word string) error {
	return s.send(protocol.AddBlockedWord{Word: word})
}

// RequestBlockedWords asks for the full blocklist snapshot.
func (s *Session) RequestBlockedWords() error {
	return s.send(protocol.GetBlockedWords{})
}

// Close tears down the connection; the receive loop emits the final
// DisconnectedEvent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sock.Close()
	})
	return err
}

func (s *Session) send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.sock.Write(data)
	return err
}

func (s *Session) receiveLoop() {
	dec := protocol.NewDecoder(0)
	buf := make([]byte, 4096)

	for {
		n, err := s.sock.Read(buf)
		if n > 0 {
			msgs, ferr := dec.Feed(buf[:n])
			for _, m := range msgs {
				s.emitMessage(m)
			}
			if ferr != nil {
				log.Printf("Error decoding server traffic: %v", ferr)
			}
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			s.finish(err)
			return
		}
	}
}

func (s *Session) emitMessage(m protocol.Message) {
	switch msg := m.(type) {
	case protocol.Chat:
		s.emit(ChatEvent{Content: msg.Content})
	case protocol.Whisper:
		s.emit(WhisperEvent{Sender: msg.Sender, Content: msg.Content})
	case protocol.UsersList:
		s.emit(UsersEvent{Users: msg.Users})
	case protocol.BlockedWordsList:
		s.emit(BlockedWordsEvent{Words: msg.Words})
	default:
		log.Printf("Ignoring unexpected server message %T", m)
	}
}

// emit queues an event without blocking; if the consumer has fallen
// eventBufferSize events behind, the event is dropped.
func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsClosed {
		return
	}
	select {
	case s.events <- ev:
	default:
		log.Printf("Event buffer full; dropping %T", ev)
	}
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if s.eventsClosed {
		s.mu.Unlock()
		return
	}
	// Queue the final event without blocking, dropping the oldest queued
	// events until it fits. Holding s.mu keeps emit out, and the consumer
	// only drains, so this terminates even against a stalled consumer.
	for {
		select {
		case s.events <- DisconnectedEvent{Err: err}:
		default:
			select {
			case <-s.events:
			default:
			}
			continue
		}
		break
	}
	s.eventsClosed = true
	s.mu.Unlock()
	close(s.events)
}
