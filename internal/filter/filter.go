// Package filter censors blocklisted words in chat messages while preserving
// everything else about the text verbatim.
package filter

import (
	"strings"
	"sync"
	"unicode"
)

// Filter holds the ordered blocklist and applies it to message content.
// Words are stored lowercase; comparison is case-insensitive. Safe for
// concurrent use.
type Filter struct {
	store WordStore

	mu    sync.RWMutex
	words []string
	index map[string]struct{}
}

// New loads the blocklist from the store and returns a ready Filter.
func New(store WordStore) (*Filter, error) {
	words, err := store.Load()
	if err != nil {
		return nil, err
	}

	f := &Filter{
		store: store,
		index: make(map[string]struct{}, len(words)),
	}
	// Normalize here rather than trusting the store; every lookup depends on
	// the words being trimmed lowercase.
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := f.index[w]; dup {
			continue
		}
		f.words = append(f.words, w)
		f.index[w] = struct{}{}
	}
	return f, nil
}

// Contains reports whether the word is blocklisted, case-insensitively.
func (f *Filter) Contains(word string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.index[strings.ToLower(word)]
	return ok
}

// Add normalizes the word to trimmed lowercase and appends it to the
// blocklist and the store. It returns false without touching the store when
// the word is already present or empty after normalization.
func (f *Filter) Add(word string) (bool, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.index[word]; exists {
		return false, nil
	}
	if err := f.store.Append(word); err != nil {
		return false, err
	}
	f.words = append(f.words, word)
	f.index[word] = struct{}{}
	return true, nil
}

// Words returns the blocklist snapshot in insertion order.
func (f *Filter) Words() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.words...)
}

// Censor replaces every blocklisted word token in the message with a run of
// '*' of the same rune length. Separators and word order are preserved
// verbatim, so the censored message has the same rune length as the input.
func (f *Filter) Censor(message string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.index) == 0 {
		return message
	}

	var b strings.Builder
	b.Grow(len(message))
	forEachToken(message, func(token string, isWord bool) {
		if isWord {
			if _, blocked := f.index[strings.ToLower(token)]; blocked {
				b.WriteString(strings.Repeat("*", len([]rune(token))))
				return
			}
		}
		b.WriteString(token)
	})
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// forEachToken splits the message into maximal word-token and separator runs
// and calls fn for each in original order.
func forEachToken(message string, fn func(token string, isWord bool)) {
	runes := []rune(message)
	start := 0
	for start < len(runes) {
		isWord := isWordRune(runes[start])
		end := start + 1
		for end < len(runes) && isWordRune(runes[end]) == isWord {
			end++
		}
		fn(string(runes[start:end]), isWord)
		start = end
	}
}
