// Package store implements the read-only client for the hosted table store
// the pipeline loads into and reports from. Two backends are provided: a
// REST client speaking the store's HTTP query API (the default) and a direct
// Postgres client for installations with database access.
//
// The surface is deliberately a single logical operation, "select all
// columns for table T, optionally limited to the first K rows", plus a
// column projection used for cheap row counting. No filtering, joins, or
// writes; the initial load is an external step outside this program.
package store

import (
	"context"

	"churnetl/pkg/records"
)

// Client fetches rows from one table of the remote store.
//
// Implementations return the rows in store-defined order, which is not
// guaranteed stable between calls. A malformed or empty response yields an
// empty slice and a nil error: downstream stages treat "no data" as a valid,
// reportable state. Errors are reserved for connectivity and authorization
// failures, which callers degrade or abort on according to their own policy.
type Client interface {
	// FetchAll returns every row of the table. limit > 0 caps the number of
	// rows returned; limit <= 0 means no cap.
	FetchAll(ctx context.Context, table string, limit int) ([]records.Record, error)

	// FetchColumn returns every row projected to a single column. Used for
	// row-count parity checks where transferring full rows would be waste.
	FetchColumn(ctx context.Context, table, column string) ([]records.Record, error)
}
