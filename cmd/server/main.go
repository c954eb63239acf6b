// Package main is the entry point for the PDF Highlight API server.
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

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/config"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/database"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/handlers"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/middleware"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/router"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/viewer"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 PDF Highlight API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s, debounce=%s",
		cfg.Port, cfg.WorkerCount, cfg.GinMode, cfg.SearchDebounce)
	log.Printf("📄 Default documents: primary=%s secondary=%s", cfg.PrimaryPDFURL, cfg.SecondaryPDFURL)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database (optional, load history only)
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("✅ Database connected")

		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
	} else {
		log.Println("⚠️  No DATABASE_URL set; load history disabled")
	}

	// Step 3: Create Services
	extractor := pdf.NewExtractor(cfg.ExtractConcurrency)
	loader := pdf.NewLoader(extractor, cfg.FetchTimeout, cfg.MaxPDFSize)
	if len(cfg.FetchAllowedNetworks) > 0 {
		loader.AllowNetworks(cfg.FetchAllowedNetworks...)
		log.Printf("🔓 Fetches may reach internal networks %v", cfg.FetchAllowedNetworks)
	}

	// Step 4: Create and Start Worker Pool
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, loader)
	if db != nil {
		wp.SetHistory(db)
	}
	wp.Start()
	defer wp.Stop()

	sessions := viewer.NewManager(wp, viewer.Options{
		InitialSource: pdf.URLSource(cfg.PrimaryPDFURL),
		PrimaryURL:    cfg.PrimaryPDFURL,
		SecondaryURL:  cfg.SecondaryPDFURL,
		Debounce:      cfg.SearchDebounce,
	}, cfg.SessionTTL)
	defer sessions.Close()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()

	// Step 5: Setup HTTP Router
	h := handlers.NewHandler(sessions, wp, extractor, db, cfg.JWTSecret, cfg.MaxPDFSize)
	r := router.Setup(h, rateLimiter, cfg.AllowedOrigins, cfg.TrustedProxies)

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Viewer: http://localhost:%s/  API docs: http://localhost:%s/api/docs", cfg.Port, cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
