package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MosinFAM/synapse/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		backend string
		dsn     string
		dir     string
	)

	flag.StringVar(&backend, "storage", envOrDefault("STORAGE_TYPE", "postgres"), "postgres or sqlite")
	flag.StringVar(&dsn, "dsn", "", "database URL for postgres or file path for sqlite (default DATABASE_URL or SQLITE_PATH)")
	flag.StringVar(&dir, "dir", envOrDefault("MIGRATIONS_DIR", "migrations"), "root migrations directory")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|down|redo|status|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	switch command {
	case "up", "down", "redo", "status", "version":
	case "":
		flag.Usage()
		return fmt.Errorf("command is required")
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	var (
		conn    *sql.DB
		dialect string
		err     error
	)
	switch backend {
	case "postgres":
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return fmt.Errorf("--dsn is required (or set DATABASE_URL)")
		}
		conn, err = db.Connect(dsn)
		dialect = db.DialectPostgres
	case "sqlite":
		if dsn == "" {
			dsn = envOrDefault("SQLITE_PATH", "synapse.db")
		}
		conn, err = db.OpenSQLite(dsn)
		dialect = db.DialectSQLite
	default:
		return fmt.Errorf("unsupported storage %q: migrations run against postgres or sqlite", backend)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	return db.RunMigrations(conn, dialect, filepath.Join(dir, backend), command, flag.Args()[1:]...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
