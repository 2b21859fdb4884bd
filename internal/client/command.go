// Package client parses slash commands typed at the prompt and turns them
// into session calls and local notices.
package client

import (
	"fmt"
	"strings"
)

// Input interprets one line of user input: slash commands act on the
// session, anything else is a room message. It reports whether the user
// asked to quit. Command feedback arrives as NoticeEvents on the event
// stream so the renderer has a single source of output.
func (s *Session) Input(line string) (quit bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return false
	}

	switch {
	case strings.HasPrefix(text, "/whisper "):
		s.inputWhisper(strings.TrimPrefix(text, "/whisper "))
	case strings.HasPrefix(text, "/join "):
		s.inputJoin(strings.TrimPrefix(text, "/join "))
	case strings.HasPrefix(text, "/blockword "):
		s.inputBlockWord(strings.TrimPrefix(text, "/blockword "))
	case strings.HasPrefix(text, "/admin "):
		s.inputAdmin(strings.TrimPrefix(text, "/admin "))
	case text == "/listblocked":
		s.inputListBlocked()
	case text == "/help":
		s.inputHelp()
	case text == "/quit":
		return true
	case strings.HasPrefix(text, "/"):
		s.notice(fmt.Sprintf("Unknown command: %s (try /help)", text))
	default:
		s.reportErr(s.Say(text))
	}
	return false
}

func (s *Session) inputWhisper(args string) {
	parts := strings.SplitN(args, " ", 2)
	if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
		s.notice("Usage: /whisper <user> <message>")
		return
	}
	target, message := parts[0], parts[1]
	if s.reportErr(s.Whisper(target, message)) {
		return
	}
	// The server never echoes whispers back to the sender.
	s.notice(fmt.Sprintf("WHISPER to %s: %s", target, message))
}

func (s *Session) inputJoin(args string) {
	room := strings.TrimSpace(args)
	if room == "" {
		s.notice("Usage: /join <room>")
		return
	}
	if s.reportErr(s.Join(room)) {
		return
	}
	s.notice(fmt.Sprintf("Joining room: %s", room))
}

func (s *Session) inputBlockWord(args string) {
	word := strings.TrimSpace(args)
	if word == "" {
		s.notice("Usage: /blockword <word>")
		return
	}
	if s.reportErr(s.AddBlockedWord(word)) {
		return
	}
	s.notice(fmt.Sprintf("Submitted word to the blocklist: %s", word))
}

func (s *Session) inputAdmin(args string) {
	password := strings.TrimSpace(args)
	s.mu.Lock()
	ok := password == s.adminPassword
	if ok {
		s.isAdmin = true
	}
	s.mu.Unlock()

	if ok {
		s.notice("You are now an administrator.")
	} else {
		s.notice("Incorrect password.")
	}
}

func (s *Session) inputListBlocked() {
	s.mu.Lock()
	isAdmin := s.isAdmin
	s.mu.Unlock()

	if !isAdmin {
		s.notice("Only administrators may list blocked words.")
		return
	}
	s.reportErr(s.RequestBlockedWords())
}

func (s *Session) inputHelp() {
	s.mu.Lock()
	isAdmin := s.isAdmin
	s.mu.Unlock()

	s.notice("Available commands:")
	s.notice("  /join <room> - switch to a room")
	s.notice("  /whisper <user> <message> - send a private message")
	s.notice("  /blockword <word> - add a word to the blocklist")
	s.notice("  /admin <password> - become an administrator")
	if isAdmin {
		s.notice("  /listblocked - list blocked words (admin)")
	}
	s.notice("  /quit - leave the chat")
	s.notice("  /help - show this help")
}

func (s *Session) notice(text string) {
	s.emit(NoticeEvent{Text: text})
}

// reportErr surfaces a send failure as a notice and reports whether there
// was one.
func (s *Session) reportErr(err error) bool {
	if err == nil {
		return false
	}
	s.notice(fmt.Sprintf("Error: %v", err))
	return true
}
