// Package client maintains a chat session and surfaces server traffic as a
// typed event stream for a rendering consumer. The consumer only reads
// events; it never produces protocol traffic itself.
package client

// Event is one item on the session's event stream.
type Event interface {
	isEvent()
}

// ChatEvent is a room broadcast, already formatted by the server.
type ChatEvent struct {
	Content string
}

// WhisperEvent is a direct message from another user.
type WhisperEvent struct {
	Sender  string
	Content string
}

// UsersEvent is the current membership of the session's room.
type UsersEvent struct {
	Users []string
}

// BlockedWordsEvent is the blocklist snapshot, in insertion order.
type BlockedWordsEvent struct {
	Words []string
}

// NoticeEvent is client-generated text: command feedback, help output,
// local whisper echoes.
type NoticeEvent struct {
	Text string
}

// DisconnectedEvent terminates the stream. Err is nil on a clean close.
type DisconnectedEvent struct {
	Err error
}

func (ChatEvent) isEvent()         {}
func (WhisperEvent) isEvent()      {}
func (UsersEvent) isEvent()        {}
func (BlockedWordsEvent) isEvent() {}
func (NoticeEvent) isEvent()       {}
func (DisconnectedEvent) isEvent() {}
