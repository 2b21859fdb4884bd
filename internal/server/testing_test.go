package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/filter"
	"github.com/parlor-chat/parlor/internal/protocol"
)

// fakeTransport records every frame written to it so tests can assert on
// exactly what a connection was sent.
type fakeTransport struct {
	mu         sync.Mutex
	frames     [][]byte
	closed     bool
	failWrites bool
}

func (f *fakeTransport) WriteFrame(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("write failed")
	}
	f.frames = append(f.frames, append([]byte(nil), p...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "fake:0" }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// received decodes every recorded frame into a typed message.
func (f *fakeTransport) received(t *testing.T) []protocol.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var msgs []protocol.Message
	for _, frame := range f.frames {
		m, err := protocol.Decode(frame)
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	return msgs
}

// reset discards frames recorded so far, typically the join notices.
func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newTestConn(username string) (*Conn, *fakeTransport) {
	tr := &fakeTransport{}
	rl := RateLimitConfig{Burst: 1000, RefillInterval: time.Second}
	return newConn(tr, username, rl), tr
}

// memStore is an in-memory filter.WordStore for router tests.
type memStore struct {
	mu    sync.Mutex
	words []string
}

func (m *memStore) Load() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.words...), nil
}

func (m *memStore) Append(word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = append(m.words, word)
	return nil
}

func newTestFilter(t *testing.T, words ...string) *filter.Filter {
	t.Helper()
	f, err := filter.New(&memStore{words: words})
	require.NoError(t, err)
	return f
}
