package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"movie-review-service/internal/api"
	"movie-review-service/internal/audit"
	"movie-review-service/internal/bookmarks"
	"movie-review-service/internal/catalog"
	"movie-review-service/internal/config"
	"movie-review-service/internal/service"
	"movie-review-service/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {

	// Load configuration first
	cfg := config.LoadConfig()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging with configurable level, format, and output
	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	// Audit log (optional)
	var auditStore audit.Store
	if cfg.Audit.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.DSN), 0o755); err != nil {
			slog.Error("create audit dir failed", "error", err)
			os.Exit(1)
		}
		store, err := audit.NewSQLiteStore(cfg.Audit.DSN)
		if err != nil {
			slog.Error("init audit storage failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		auditStore = store
	} else if cfg.Audit.Driver != "" {
		slog.Warn("unknown audit driver", "driver", cfg.Audit.Driver)
	}

	// File-backed stores
	repo := storage.NewCSVRepository(cfg.Data.ReviewsDir)
	movieCatalog := catalog.NewStore(cfg.Data.MoviesFile)
	bookmarkStore := bookmarks.NewStore(cfg.Data.BookmarksFile)

	// Services
	reviewService := service.NewReviews(repo, movieCatalog, auditStore, cfg.Pagination)
	statsService := service.NewStats(auditStore, movieCatalog, bookmarkStore)

	// HTTP routes
	mux := http.NewServeMux()
	handler := api.NewHandler(cfg, reviewService, statsService, movieCatalog, bookmarkStore)
	handler.Register(mux)

	// Liveness probe (Kubernetes: startup/liveness)
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness probe: the service is ready once its data root is writable
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := os.MkdirAll(cfg.Data.ReviewsDir, 0o755); err != nil {
			slog.Warn("data root not writable", "error", err)
			http.Error(w, "Storage unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	// Prometheus Metrics Endpoint
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "reviews_dir", cfg.Data.ReviewsDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("server stopping")

	// Give the server 5 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown forced", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer
	outputs := strings.Split(cfg.Log.Output, ",")

	for _, output := range outputs {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			// Use lumberjack for log rotation
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	multiWriter := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	return slog.New(handler), cleanup
}
