// This file adds a lightweight validator for Config values. It performs
// static checks over a resolved Config and returns a list of issues (errors
// and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Config.
//
// Path names the offending field in env-var form (e.g. "SUPABASE_URL").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasError reports whether any issue in the slice has error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Config.
//
// needStore indicates whether the invoked stage queries the remote store.
// The transform and probe stages are pure file-to-file operations and may run
// without credentials; analysis and validation must fail fast, before any
// network call, when the connection parameters are absent.
func Validate(c Config, needStore bool) []Issue {
	var issues []Issue

	if needStore {
		switch c.StoreBackend {
		case BackendREST:
			if strings.TrimSpace(c.SupabaseURL) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     EnvSupabaseURL,
					Message:  "store URL is required; set it in the environment or .env",
				})
			}
			if strings.TrimSpace(c.SupabaseKey) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     EnvSupabaseKey,
					Message:  "store access key is required; set it in the environment or .env",
				})
			}
		case BackendPostgres:
			if strings.TrimSpace(c.DatabaseDSN) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     EnvDatabaseDSN,
					Message:  "postgres backend selected but no DSN configured",
				})
			}
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     EnvStoreBackend,
				Message:  fmt.Sprintf("unknown store backend %q (want %q or %q)", c.StoreBackend, BackendREST, BackendPostgres),
			})
		}
	}

	if strings.TrimSpace(c.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     EnvTable,
			Message:  "table name must not be empty",
		})
	}
	if strings.TrimSpace(c.StagedDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     EnvStagedDir,
			Message:  "staged directory must not be empty",
		})
	}
	if strings.TrimSpace(c.ProcessedDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     EnvProcessedDir,
			Message:  "processed directory must not be empty",
		})
	}

	// A DSN configured while the REST backend is active is almost always a
	// leftover from switching backends; warn so runs stay explainable.
	if c.StoreBackend == BackendREST && strings.TrimSpace(c.DatabaseDSN) != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     EnvDatabaseDSN,
			Message:  "DSN is set but ignored by the rest backend",
		})
	}

	return issues
}
