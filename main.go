package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/adimpact/chatbot/api"
	"github.com/adimpact/chatbot/chat"
	"github.com/adimpact/chatbot/config"
	"github.com/adimpact/chatbot/openrouter"
	"github.com/adimpact/chatbot/ratelimit"
	"github.com/adimpact/chatbot/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting chatbot backend...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("OpenRouter URL: %s", cfg.OpenRouterBaseURL)
	log.Printf("Model: %s", cfg.Model)
	log.Printf("Session TTL: %s", cfg.SessionTTL)
	log.Printf("Rate limit: %d/min", cfg.RateLimitPerMin)

	// Initialize session store and rate limiter
	sessions := store.New()
	limiter := ratelimit.New(cfg.RateLimitPerMin)

	// Initialize OpenRouter client
	llmClient := openrouter.NewClient(
		cfg.OpenRouterBaseURL,
		cfg.OpenRouterAPIKey,
		cfg.Model,
		cfg.MaxTokens,
		cfg.Temperature,
		cfg.RequestTimeout,
	)

	// Initialize chat service
	svc := chat.New(sessions, limiter, llmClient, cfg.SessionTTL)

	// Initialize handler
	h := api.NewHandler(svc)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Chatbot API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chatbot backend...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Chatbot backend stopped")
}
