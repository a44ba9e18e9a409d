/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the vacation lifecycle engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Create integration clients (balance service, holiday feed)
  4. Wire the lifecycle engine and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: vacation.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  BALANCE_SERVICE_URL   Base URL of the balance system of record (required)
  BALANCE_SERVICE_TOKEN Bearer token for the balance service (optional)
  HOLIDAY_FEED_URL      Base URL of the public-holiday feed (optional;
                        holiday import is disabled when unset)
  BALANCE_CACHE_TTL     Dashboard balance cache TTL (default: 30s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/vacation.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - vacation/engine.go: Lifecycle engine
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nimbus-hr/vacation-engine/api"
	"github.com/nimbus-hr/vacation-engine/integration"
	"github.com/nimbus-hr/vacation-engine/store/sqlite"
	"github.com/nimbus-hr/vacation-engine/vacation"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "vacation.db", "SQLite database path")
	flag.Parse()

	balanceURL := os.Getenv("BALANCE_SERVICE_URL")
	if balanceURL == "" {
		log.Fatal("BALANCE_SERVICE_URL is required")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Integration clients
	provider := integration.NewBalanceClient(balanceURL, os.Getenv("BALANCE_SERVICE_TOKEN"))

	// Wire the engine
	engine := vacation.NewEngine(store, store, provider, store, store)
	engine.Cache = vacation.NewBalanceCache(balanceCacheTTL())
	if feedURL := os.Getenv("HOLIDAY_FEED_URL"); feedURL != "" {
		engine.Feed = integration.NewHolidayFeedClient(feedURL)
	} else {
		log.Println("HOLIDAY_FEED_URL not set; holiday import disabled")
	}

	// Create router
	router := api.NewRouter(api.NewHandler(engine))

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func balanceCacheTTL() time.Duration {
	raw := os.Getenv("BALANCE_CACHE_TTL")
	if raw == "" {
		return 30 * time.Second
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		log.Printf("Invalid BALANCE_CACHE_TTL %q, using 30s", raw)
		return 30 * time.Second
	}
	return ttl
}
