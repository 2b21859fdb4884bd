// Package protocol defines the typed messages exchanged between Parlor
// clients and servers and the codec that frames them on a byte stream.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Wire discriminator values carried in each record's "type" field. The
// handshake record is the one exception: it has no "type" field, only a
// "username" field.
const (
	TypeChat             = "message"
	TypeWhisper          = "whisper"
	TypeJoinRoom         = "join_room"
	TypeGetUsers         = "get_users"
	TypeAddBlockedWord   = "add_blocked_word"
	TypeGetBlockedWords  = "get_blocked_words"
	TypeUsersList        = "users_list"
	TypeBlockedWordsList = "blocked_words_list"
)

// Message is implemented by every record that can appear on the wire.
type Message interface {
	// Kind returns the wire discriminator, or "" for the handshake record.
	Kind() string
}

// Hello is the handshake record. It must be the first record a client sends
// and carries no type discriminator.
type Hello struct {
	Username string
}

// Chat is a room message. Client to server it carries the raw content; server
// to client it carries the already-formatted, already-censored line.
type Chat struct {
	Content string
}

// Whisper is a direct message. Client to server, Target names the recipient;
// server to client, Sender names the originator.
type Whisper struct {
	Target  string
	Sender  string
	Content string
}

// JoinRoom asks the server to move the sender into a room, creating it if
// needed.
type JoinRoom struct {
	Room string
}

// GetUsers requests the member list of a room. An empty Room means the
// sender's current room.
type GetUsers struct {
	Room string
}

// AddBlockedWord asks the server to append a word to the blocklist.
type AddBlockedWord struct {
	Word string
}

// GetBlockedWords requests the full blocklist snapshot.
type GetBlockedWords struct{}

// UsersList carries a room's membership in registry iteration order.
type UsersList struct {
	Users []string
}

// BlockedWordsList carries the blocklist snapshot in insertion order.
type BlockedWordsList struct {
	Words []string
}

func (Hello) Kind() string            { return "" }
func (Chat) Kind() string             { return TypeChat }
func (Whisper) Kind() string          { return TypeWhisper }
func (JoinRoom) Kind() string         { return TypeJoinRoom }
func (GetUsers) Kind() string         { return TypeGetUsers }
func (AddBlockedWord) Kind() string   { return TypeAddBlockedWord }
func (GetBlockedWords) Kind() string  { return TypeGetBlockedWords }
func (UsersList) Kind() string        { return TypeUsersList }
func (BlockedWordsList) Kind() string { return TypeBlockedWordsList }

// Encode serializes a message as one self-contained JSON record. Records are
// written back to back with no delimiter; the Decoder recovers boundaries
// structurally.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Hello:
		return json.Marshal(struct {
			Username string `json:"username"`
		}{v.Username})
	case Chat:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{TypeChat, v.Content})
	case Whisper:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Target  string `json:"target,omitempty"`
			Sender  string `json:"sender,omitempty"`
			Content string `json:"content"`
		}{TypeWhisper, v.Target, v.Sender, v.Content})
	case JoinRoom:
		return json.Marshal(struct {
			Type string `json:"type"`
			Room string `json:"room"`
		}{TypeJoinRoom, v.Room})
	case GetUsers:
		return json.Marshal(struct {
			Type string `json:"type"`
			Room string `json:"room,omitempty"`
		}{TypeGetUsers, v.Room})
	case AddBlockedWord:
		return json.Marshal(struct {
			Type string `json:"type"`
			Word string `json:"word"`
		}{TypeAddBlockedWord, v.Word})
	case GetBlockedWords:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{TypeGetBlockedWords})
	case UsersList:
		users := v.Users
		if users == nil {
			users = []string{}
		}
		return json.Marshal(struct {
			Type  string   `json:"type"`
			Users []string `json:"users"`
		}{TypeUsersList, users})
	case BlockedWordsList:
		words := v.Words
		if words == nil {
			words = []string{}
		}
		return json.Marshal(struct {
			Type  string   `json:"type"`
			Words []string `json:"words"`
		}{TypeBlockedWordsList, words})
	default:
		return nil, fmt.Errorf("protocol: cannot encode message of type %T", m)
	}
}

// record is the union of every field any frame can carry; Decode picks the
// concrete message based on the discriminator.
type record struct {
	Type     string   `json:"type"`
	Username string   `json:"username"`
	Content  string   `json:"content"`
	Target   string   `json:"target"`
	Sender   string   `json:"sender"`
	Room     string   `json:"room"`
	Word     string   `json:"word"`
	Users    []string `json:"users"`
	Words    []string `json:"words"`
}

// Decode parses exactly one complete JSON record into a typed message. The
// input must hold the whole record; use Decoder for incremental stream input.
func Decode(data []byte) (Message, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("protocol: malformed record: %w", err)
	}
	return fromRecord(rec)
}

func fromRecord(rec record) (Message, error) {
	switch rec.Type {
	case "":
		if rec.Username == "" {
			return nil, fmt.Errorf("protocol: record has no type and no username")
		}
		return Hello{Username: rec.Username}, nil
	case TypeChat:
		return Chat{Content: rec.Content}, nil
	case TypeWhisper:
		return Whisper{Target: rec.Target, Sender: rec.Sender, Content: rec.Content}, nil
	case TypeJoinRoom:
		if rec.Room == "" {
			return nil, fmt.Errorf("protocol: join_room record missing room")
		}
		return JoinRoom{Room: rec.Room}, nil
	case TypeGetUsers:
		return GetUsers{Room: rec.Room}, nil
	case TypeAddBlockedWord:
		return AddBlockedWord{Word: rec.Word}, nil
	case TypeGetBlockedWords:
		return GetBlockedWords{}, nil
	case TypeUsersList:
		return UsersList{Users: rec.Users}, nil
	case TypeBlockedWordsList:
		return BlockedWordsList{Words: rec.Words}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown message type %q", rec.Type)
	}
}
