package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tkahng/boxes/server"
)

// Main function with graceful shutdown
func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	addr := envOr("BOXES_ADDR", ":8080")
	origin := envOr("BOXES_ALLOWED_ORIGIN", "http://localhost:3000")
	maxGames := envIntOr("BOXES_MAX_GAMES", 1000)

	// Create and start game server
	srv := server.NewGameServer(maxGames)
	srv.Start()

	// nolint:exhaustruct
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Cors(origin, srv.Handler()),
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	srv.Stop()

	log.Println("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
