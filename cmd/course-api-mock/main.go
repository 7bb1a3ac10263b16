// main is the entry point of the mock course API: an in-memory server
// that speaks the same REST contract as the real backend, for working on
// the client without one.
//
// STARTUP SEQUENCE:
//  1. Load configuration (the same file coursedesk reads)
//  2. Initialise the logger
//  3. Register all HTTP routes against an empty in-memory store
//  4. Start the HTTP server in a separate goroutine
//  5. Block until an OS signal (Ctrl+C / kill) arrives
//  6. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/course-api-mock --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moviles/coursedesk/internal/config"
	"github.com/moviles/coursedesk/internal/http/handlers"
	"github.com/moviles/coursedesk/internal/http/memstore"
	"github.com/moviles/coursedesk/internal/logger"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// The handlers log through the default logger.
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting course-api-mock", slog.String("env", cfg.Env))

	// ── 3. Register HTTP Routes ───────────────────────────────────────────
	router := handlers.NewRouter(memstore.New())

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 4. Start Server in a Goroutine ────────────────────────────────────
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 5. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 6. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
