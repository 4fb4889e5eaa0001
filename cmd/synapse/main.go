package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MosinFAM/synapse/internal/api"
	"github.com/MosinFAM/synapse/internal/auth"
	"github.com/MosinFAM/synapse/internal/config"
	"github.com/MosinFAM/synapse/internal/db"
	"github.com/MosinFAM/synapse/internal/graph"
	"github.com/MosinFAM/synapse/internal/llm"
	"github.com/MosinFAM/synapse/internal/service"
	"github.com/MosinFAM/synapse/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("SYNAPSE_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))

	// SIGINT/SIGTERM cancels subscriptions and stops the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("storage ready", "type", cfg.Storage.Type)

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	svc := api.Services{
		Accounts: service.NewAccounts(store, issuer, logger),
		Chat:     service.NewChat(store, client, cfg.LLM.Model, cfg.LLM.ModelLabel, logger),
		Feed:     service.NewFeed(store, cfg.Server.FeedPageSize, logger),
		Issuer:   issuer,
	}
	if cfg.Google.Enabled() {
		svc.Google = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	}

	svc.GraphQL = graph.NewHandler(&graph.Resolver{Accounts: svc.Accounts, Chat: svc.Chat, Feed: svc.Feed}, issuer, logger)
	svc.Playground = graph.Playground("/query")

	server := api.NewServer(cfg.Server, svc, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("server started", "port", cfg.Server.Port, "llm_provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}

// openStorage connects the configured backend and runs SQL migrations
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, func(), error) {
	switch cfg.Type {
	case config.StoragePostgres:
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(conn, db.DialectPostgres, filepath.Join(cfg.MigrationsDir, "postgres")); err != nil {
			conn.Close()
			return nil, nil, err
		}
		pg := storage.NewPostgresStorage(conn, cfg.DatabaseURL, logger)
		if err := pg.Listen(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return pg, func() { conn.Close() }, nil

	case config.StorageSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(conn, db.DialectSQLite, filepath.Join(cfg.MigrationsDir, "sqlite")); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return storage.NewSQLiteStorage(conn, logger), func() { conn.Close() }, nil

	case config.StorageMongo:
		client, database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		mongoStore := storage.NewMongoStorage(database, logger)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, err
		}
		return mongoStore, disconnect, nil

	default:
		return storage.NewMemoryStorage(logger), func() {}, nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
