package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// writeSQLite mirrors the computed metrics into a local SQLite reporting
// database next to the CSV artifacts, one table per metric, so the
// aggregates can be queried ad hoc without re-running the pipeline. Tables
// are dropped and recreated on every run; the DB has no state worth keeping
// between runs.
func writeSQLite(ctx context.Context, dir string, m Metrics) error {
	db, err := sql.Open("sqlite", filepath.Join(dir, SQLiteFile))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	var churn any
	if m.Summary.ChurnPercentage != nil {
		churn = *m.Summary.ChurnPercentage
	}
	if err := replaceTable(ctx, db, "analysis_summary",
		[]string{"churn_percentage REAL", "rows_analyzed INTEGER"},
		[][]any{{churn, m.Summary.RowsAnalyzed}}); err != nil {
		return err
	}

	if len(m.AvgByContract) > 0 {
		rows := make([][]any, 0, len(m.AvgByContract))
		for _, r := range m.AvgByContract {
			rows = append(rows, []any{r.Contract, r.AvgMonthlyCharges})
		}
		if err := replaceTable(ctx, db, "avg_monthly_by_contract",
			[]string{"contract TEXT", "avg_monthly_charges REAL"}, rows); err != nil {
			return err
		}
	}

	if len(m.TenureCounts) > 0 {
		if err := replaceTable(ctx, db, "tenure_group_counts",
			[]string{"tenure_group TEXT", "count INTEGER"}, countsToRows(m.TenureCounts)); err != nil {
			return err
		}
	}
	if len(m.InternetDist) > 0 {
		if err := replaceTable(ctx, db, "internet_service_distribution",
			[]string{"internet_service TEXT", "count INTEGER"}, countsToRows(m.InternetDist)); err != nil {
			return err
		}
	}

	if len(m.ChurnVsTenure) > 0 {
		rows := make([][]any, 0, len(m.ChurnVsTenure))
		for _, r := range m.ChurnVsTenure {
			rows = append(rows, []any{r.TenureGroup, r.NoChurnPct, r.ChurnPct})
		}
		if err := replaceTable(ctx, db, "churn_vs_tenure_pivot",
			[]string{"tenure_group TEXT", "no_churn_pct REAL", "churn_pct REAL"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func countsToRows(counts []CountRow) [][]any {
	rows := make([][]any, 0, len(counts))
	for _, r := range counts {
		rows = append(rows, []any{r.Value, r.Count})
	}
	return rows
}

// replaceTable recreates the table with the given column definitions and
// inserts all rows inside a single transaction; SQLite has no bulk-load API,
// but one transaction keeps this fast at reporting volumes.
func replaceTable(ctx context.Context, db *sql.DB, table string, colDefs []string, rows [][]any) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(colDefs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	placeholders := make([]string, len(colDefs))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}
