package filter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/filter"
)

// memStore is an in-memory WordStore for tests that do not care about files.
type memStore struct {
	words    []string
	appends  []string
	loadErr  error
	writeErr error
}

func (m *memStore) Load() ([]string, error) {
	return m.words, m.loadErr
}

func (m *memStore) Append(word string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.appends = append(m.appends, word)
	return nil
}

func newFilter(t *testing.T, words ...string) *filter.Filter {
	t.Helper()
	f, err := filter.New(&memStore{words: words})
	require.NoError(t, err)
	return f
}

func TestCensorMasksBlockedWords(t *testing.T) {
	tests := []struct {
		name    string
		words   []string
		message string
		want    string
	}{
		{"basic", []string{"spam"}, "no spam here", "no **** here"},
		{"case insensitive", []string{"spam"}, "NO SPAM HERE", "NO **** HERE"},
		{"mixed case blocked word", []string{"foo"}, "foo bar", "*** bar"},
		{"multiple occurrences", []string{"spam"}, "spam, spam and Spam!", "****, **** and ****!"},
		{"punctuation preserved", []string{"spam"}, "spam!!! really?", "****!!! really?"},
		{"substring not masked", []string{"spam"}, "spammer spams", "spammer spams"},
		{"empty blocklist", nil, "anything goes", "anything goes"},
		{"multiple words", []string{"spam", "ham"}, "spam and ham and eggs", "**** and *** and eggs"},
		{"unicode word", []string{"café"}, "meet at the café now", "meet at the **** now"},
		{"underscore is part of word", []string{"spam"}, "spam_bot spam", "spam_bot ****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFilter(t, tt.words...)
			assert.Equal(t, tt.want, f.Censor(tt.message))
		})
	}
}

func TestCensorPreservesRuneLength(t *testing.T) {
	f := newFilter(t, "spam", "café")
	for _, msg := range []string{"no spam here", "café spam café", "  spam\tspam\n"} {
		assert.Equal(t, len([]rune(msg)), len([]rune(f.Censor(msg))), "message %q", msg)
	}
}

func TestCensorIsIdempotent(t *testing.T) {
	f := newFilter(t, "spam", "ham")
	msg := "spam with ham and more spam"
	once := f.Censor(msg)
	assert.Equal(t, once, f.Censor(once))
}

func TestNewNormalizesLoadedWords(t *testing.T) {
	// A store is not obliged to hand back normalized words; the filter must
	// not let a sloppy one break lookups.
	f, err := filter.New(&memStore{words: []string{" SPAM ", "spam", "", "Ham"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"spam", "ham"}, f.Words())
	assert.True(t, f.Contains("spam"))
	assert.Equal(t, "no **** or ***", f.Censor("no spam or ham"))
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	f := newFilter(t, "spam")
	assert.True(t, f.Contains("spam"))
	assert.True(t, f.Contains("SPAM"))
	assert.True(t, f.Contains("Spam"))
	assert.False(t, f.Contains("ham"))
}

func TestAddNormalizesAndPersists(t *testing.T) {
	store := &memStore{}
	f, err := filter.New(store)
	require.NoError(t, err)

	added, err := f.Add("  Foo ")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"foo"}, store.appends)
	assert.Equal(t, "*** bar", f.Censor("foo bar"))
}

func TestAddIsIdempotent(t *testing.T) {
	store := &memStore{words: []string{"spam"}}
	f, err := filter.New(store)
	require.NoError(t, err)

	added, err := f.Add("SPAM")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, store.appends, "duplicate insert must not touch the store")
}

func TestAddRejectsBlankWords(t *testing.T) {
	f := newFilter(t)
	added, err := f.Add("   ")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddSurfacesStoreFailure(t *testing.T) {
	store := &memStore{writeErr: os.ErrPermission}
	f, err := filter.New(store)
	require.NoError(t, err)

	added, err := f.Add("spam")
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, added)
	assert.False(t, f.Contains("spam"), "failed persist must not mutate the in-memory list")
}

func TestWordsPreservesInsertionOrder(t *testing.T) {
	f := newFilter(t, "one", "two")
	_, err := f.Add("three")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, f.Words())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked_words.txt")
	store := filter.NewFileStore(path)

	words, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, words, "missing file loads as empty list")

	require.NoError(t, store.Append("spam"))
	require.NoError(t, store.Append("ham"))

	words, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"spam", "ham"}, words)
}

func TestFileStoreLoadNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked_words.txt")
	require.NoError(t, os.WriteFile(path, []byte("  SPAM \n\n ham\n"), 0o644))

	words, err := filter.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"spam", "ham"}, words)
}
