package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
	}{
		{"hello", protocol.Hello{Username: "alice"}},
		{"chat", protocol.Chat{Content: "hello there"}},
		{"whisper outbound", protocol.Whisper{Target: "bob", Content: "psst"}},
		{"whisper inbound", protocol.Whisper{Sender: "alice", Content: "psst"}},
		{"join room", protocol.JoinRoom{Room: "dev"}},
		{"get users", protocol.GetUsers{Room: "general"}},
		{"get users default room", protocol.GetUsers{}},
		{"add blocked word", protocol.AddBlockedWord{Word: "spam"}},
		{"get blocked words", protocol.GetBlockedWords{}},
		{"users list", protocol.UsersList{Users: []string{"alice", "bob"}}},
		{"blocked words list", protocol.BlockedWordsList{Words: []string{"spam", "ham"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := protocol.Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := protocol.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

// The handshake record is type-less on the wire; only the username field
// identifies it.
func TestHelloWireFormat(t *testing.T) {
	data, err := protocol.Encode(protocol.Hello{Username: "alice"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]any{"username": "alice"}, fields)
}

func TestChatWireFormat(t *testing.T) {
	data, err := protocol.Encode(protocol.Chat{Content: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message","content":"hi"}`, string(data))
}

// Empty lists must serialize as [], never null, to match what peers expect.
func TestListsEncodeEmptyArrays(t *testing.T) {
	data, err := protocol.Encode(protocol.UsersList{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"users_list","users":[]}`, string(data))

	data, err = protocol.Encode(protocol.BlockedWordsList{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"blocked_words_list","words":[]}`, string(data))
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"teleport","content":"x"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsEmptyRecord(t *testing.T) {
	_, err := protocol.Decode([]byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeRejectsJoinRoomWithoutRoom(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"join_room"}`))
	assert.Error(t, err)
}
