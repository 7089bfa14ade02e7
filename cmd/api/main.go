package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"diarykeeper/internal/archive"
	"diarykeeper/internal/backup"
	"diarykeeper/internal/config"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/http"
	"diarykeeper/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Wire the store stack
	kv := storage.NewKVRepo(db)
	keys := diary.Keys{Namespace: cfg.KeyNamespace}
	backups := backup.NewManager(kv, cfg.KeyNamespace)
	sections := diary.NewSectionStore(kv, backups, keys)

	ctx := context.Background()
	if err := sections.Load(ctx); err != nil {
		log.Fatalf("Failed to load sections: %v", err)
	}
	slog.Info("Sections loaded", "count", len(sections.Sections()))

	archiveManager := archive.NewManager(kv, backups, keys, cfg.AppName, cfg.ExportDir)

	// Create router with dependencies
	deps := &http.Deps{
		Store:    kv,
		Backups:  backups,
		Keys:     keys,
		Sections: sections,
		Archive:  archiveManager,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
