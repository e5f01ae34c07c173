package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"churnetl/pkg/records"
)

// PostgresClient is a direct-database implementation of Client using pgx.
// The hosted store is Postgres underneath, so installations with database
// credentials can skip the HTTP surface entirely.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient connects a pgx pool to the given DSN and returns the
// client plus a close function for cleanup.
func NewPostgresClient(ctx context.Context, dsn string) (*PostgresClient, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("store: pgxpool: %w", err)
	}
	return &PostgresClient{pool: pool}, pool.Close, nil
}

// FetchAll implements Client.
func (c *PostgresClient) FetchAll(ctx context.Context, table string, limit int) ([]records.Record, error) {
	sql := "SELECT * FROM " + pgFQN(table)
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return c.queryRecords(ctx, sql)
}

// FetchColumn implements Client.
func (c *PostgresClient) FetchColumn(ctx context.Context, table, column string) ([]records.Record, error) {
	sql := "SELECT " + pgIdent(column) + " FROM " + pgFQN(table)
	return c.queryRecords(ctx, sql)
}

func (c *PostgresClient) queryRecords(ctx context.Context, sql string) ([]records.Record, error) {
	rows, err := c.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = string(fd.Name)
	}

	recs := []records.Record{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		rec := make(records.Record, len(cols))
		for i, col := range cols {
			rec[col] = vals[i]
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return recs, nil
}

// pgIdent quotes a single identifier for safe interpolation.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// pgFQN quotes a possibly schema-qualified name ("public.telco_data").
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}
