package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/memberdesk/memberdesk/internal/config"
	"github.com/memberdesk/memberdesk/internal/importer"
	"github.com/memberdesk/memberdesk/internal/logging"
	"github.com/memberdesk/memberdesk/internal/schema"
	"github.com/memberdesk/memberdesk/internal/store"
	"github.com/memberdesk/memberdesk/internal/web"
)

func main() {
	// Load .env file if present (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"default_country", cfg.Import.DefaultCountry,
		"max_file_size", cfg.Import.MaxFileSize,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to database")

	importer.MaxFileSize = cfg.Import.MaxFileSize

	service := importer.NewService(
		schema.DefaultAliases(),
		store.NewMembers(pool),
		store.NewBatches(pool),
		importer.Options{
			SkipDuplicates: cfg.Import.SkipDuplicates,
			DefaultCountry: cfg.Import.DefaultCountry,
		},
		slog.Default(),
	)

	server := web.NewServer(service, cfg)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := server.Start(runCtx); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
