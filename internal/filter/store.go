// Package filter provides the blocklist word store collaborator backed by a
// plain-text file, one word per line.
package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// WordStore is the persistence collaborator for the blocklist: an ordered
// load at startup and incremental appends as words are accepted.
type WordStore interface {
	Load() ([]string, error)
	Append(word string) error
}

// FileStore persists the blocklist as a plain-text file with one lowercase
// word per line. A missing file loads as an empty list.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore for the given path. The file is not
// created until the first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the word list in file order. Blank lines are skipped and words
// are trimmed and lowercased.
func (s *FileStore) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("filter: open blocklist file: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filter: read blocklist file: %w", err)
	}
	return words, nil
}

// Append writes one word as a new line at the end of the file, creating the
// file if needed.
func (s *FileStore) Append(word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filter: open blocklist file for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(word + "\n"); err != nil {
		return fmt.Errorf("filter: append blocklist word: %w", err)
	}
	return nil
}
