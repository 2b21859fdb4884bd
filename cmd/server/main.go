package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parlor-chat/parlor/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := srv.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Shutdown did not complete cleanly: %v", err)
		os.Exit(1)
	}
}
