// Package config defines the process-wide configuration for the churn ETL
// pipeline. Configuration is resolved exactly once at startup from the
// environment (with a best-effort .env autoload) and passed down to the
// stages; nothing deeper in the program reads environment variables.
//
// Design goals:
//
//  1. Explicitness: every knob has a named field, an env var, and a default.
//  2. Fail-fast: missing store credentials are a fatal configuration error
//     surfaced before any network call is attempted.
//  3. Minimalism: plain env lookups plus godotenv; no config framework.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variable names read by Load.
const (
	EnvSupabaseURL  = "SUPABASE_URL"
	EnvSupabaseKey  = "SUPABASE_KEY"
	EnvTable        = "CHURNETL_TABLE"
	EnvStagedDir    = "CHURNETL_STAGED_DIR"
	EnvProcessedDir = "CHURNETL_PROCESSED_DIR"
	EnvStoreBackend = "CHURNETL_STORE_BACKEND"
	EnvDatabaseDSN  = "DATABASE_DSN"
)

// Defaults applied when the corresponding env var is unset.
const (
	DefaultTable        = "telco_data"
	DefaultStagedDir    = "data/staged"
	DefaultProcessedDir = "data/processed"

	// StagedFileName is the fixed name of the transformed dataset inside the
	// staged directory.
	StagedFileName = "Customer_transformed.csv"
)

// Store backend kinds selectable via CHURNETL_STORE_BACKEND.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config is the resolved, read-only configuration for one run.
type Config struct {
	// SupabaseURL is the base URL of the hosted table store
	// (e.g. https://xyzcompany.supabase.co). Required before any query.
	SupabaseURL string

	// SupabaseKey is the access key sent with every store request.
	// Required before any query.
	SupabaseKey string

	// Table is the remote table holding the loaded customer rows.
	Table string

	// StagedDir is where the transform stage writes the staged CSV.
	StagedDir string

	// ProcessedDir is where the analysis stage writes its artifacts.
	ProcessedDir string

	// StoreBackend selects how the store is queried: "rest" (default) talks
	// to the hosted query API over HTTP, "postgres" connects directly with
	// pgx using DatabaseDSN.
	StoreBackend string

	// DatabaseDSN is the Postgres connection string; only consulted when
	// StoreBackend is "postgres".
	DatabaseDSN string
}

// Load resolves the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over .env entries (godotenv does not overwrite).
//
// Load never fails: completeness is checked separately by Validate so that
// stages with no store dependency (transform, probe) can run without
// credentials.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		SupabaseURL:  os.Getenv(EnvSupabaseURL),
		SupabaseKey:  os.Getenv(EnvSupabaseKey),
		Table:        getenvDefault(EnvTable, DefaultTable),
		StagedDir:    getenvDefault(EnvStagedDir, DefaultStagedDir),
		ProcessedDir: getenvDefault(EnvProcessedDir, DefaultProcessedDir),
		StoreBackend: getenvDefault(EnvStoreBackend, BackendREST),
		DatabaseDSN:  os.Getenv(EnvDatabaseDSN),
	}
}

// StagedPath returns the fixed location of the staged CSV for this config.
func (c Config) StagedPath() string {
	return filepath.Join(c.StagedDir, StagedFileName)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
