// Package main is the entry point for the notekeeper API server.
//
// The main package stays minimal:
//  1. Read configuration (flags, config file, env vars)
//  2. Create the logger
//  3. Start the server
//
// All actual logic lives in internal/ packages.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/notekeeper/internal/config"
	"github.com/sakif/notekeeper/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("NOTEKEEPER_CONFIG"), "path to a TOML config file")
	flag.Parse()

	// === 1. CONFIGURATION ===
	// defaults → TOML file → PORT, DB_PATH, JWT_SECRET, GITHUB_*, LOG_LEVEL
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.NewLogger()

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	if err := cfg.RequireSecret(); err != nil {
		logger.Error("refusing to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; 0755 = owner rwx, others rx.
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until SIGINT / SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
