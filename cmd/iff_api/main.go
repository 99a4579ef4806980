// Package main provides the iff_api server for decoded flight data.
//
// This is a standalone REST API server over a dataset store populated
// by `iff_parser store`. It serves dataset listings, paged rows and
// per-dataset callsign summaries to analysis frontends.
//
// Usage:
//
//	iff_api [options]
//
// Options:
//
//	-db PATH            SQLite dataset store path (default: datasets.db)
//	-pg                 Use PostgreSQL instead of SQLite
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432)
//	-pg-database DB     PostgreSQL database (default: iff_datasets, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: iff, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (env: POSTGRES_PASSWORD)
//	-port N             HTTP port (default: 8081)
//
// API Endpoints:
//
//	GET /api/v1/health
//	GET /api/v1/datasets
//	GET /api/v1/datasets/{key}?limit=N&offset=N
//	GET /api/v1/datasets/{key}/callsigns
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"iff_parser/internal/api"
	"iff_parser/internal/storage"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	dbPath := flag.String("db", "datasets.db", "SQLite dataset store path")
	usePG := flag.Bool("pg", false, "Use PostgreSQL instead of SQLite")
	pgHost := flag.String("pg-host", envOr("POSTGRES_HOST", "localhost"), "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgDatabase := flag.String("pg-database", envOr("POSTGRES_DATABASE", "iff_datasets"), "PostgreSQL database")
	pgUser := flag.String("pg-user", envOr("POSTGRES_USER", "iff"), "PostgreSQL user")
	pgPassword := flag.String("pg-password", envOr("POSTGRES_PASSWORD", ""), "PostgreSQL password")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	var store storage.Store
	var err error
	if *usePG {
		store, err = storage.OpenPostgres(context.Background(), storage.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			Database: *pgDatabase,
			User:     *pgUser,
			Password: *pgPassword,
		})
	} else {
		store, err = storage.OpenSQLite(*dbPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	srv := api.NewServer(store, api.Config{Port: *port})
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
