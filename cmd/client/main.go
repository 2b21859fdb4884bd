package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parlor-chat/parlor/internal/client"
)

const defaultServerAddr = "localhost:9999"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: parlor-client <username>")
		os.Exit(1)
	}
	username := os.Args[1]

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = defaultServerAddr
	}

	sess, err := client.Dial(addr, username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}

	fmt.Printf("Welcome to the chat, %s! You are in room: %s\n", sess.Username(), sess.Room())
	fmt.Println("Type a message and press Enter to send; /help lists commands.")

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for ev := range sess.Events() {
			render(ev)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if sess.Input(scanner.Text()) {
			break
		}
		select {
		case <-disconnected:
			os.Exit(1)
		default:
		}
	}

	_ = sess.Close()
	<-disconnected
}

func render(ev client.Event) {
	stamp := time.Now().Format("15:04:05")
	switch e := ev.(type) {
	case client.ChatEvent:
		fmt.Printf("[%s] %s\n", stamp, e.Content)
	case client.WhisperEvent:
		fmt.Printf("[%s] WHISPER %s: %s\n", stamp, e.Sender, e.Content)
	case client.UsersEvent:
		fmt.Printf("[%s] Users in room: %s\n", stamp, strings.Join(e.Users, ", "))
	case client.BlockedWordsEvent:
		fmt.Printf("[%s] Blocked words (%d): %s\n", stamp, len(e.Words), strings.Join(e.Words, ", "))
	case client.NoticeEvent:
		fmt.Printf("[%s] %s\n", stamp, e.Text)
	case client.DisconnectedEvent:
		if e.Err != nil {
			fmt.Printf("[%s] Connection lost: %v\n", stamp, e.Err)
		} else {
			fmt.Printf("[%s] Connection closed\n", stamp)
		}
	}
}
