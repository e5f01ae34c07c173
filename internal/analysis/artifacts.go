package analysis

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// Artifact file names, fixed per metric.
const (
	SummaryFile      = "analysis_summary.csv"
	AvgContractFile  = "avg_monthly_by_contract.csv"
	TenureCountsFile = "tenure_group_counts.csv"
	InternetDistFile = "internet_service_distribution.csv"
	PivotFile        = "churn_vs_tenure_pivot.csv"
	SQLiteFile       = "analysis.db"
)

// writeArtifacts writes one CSV per computed metric. The summary is always
// written; the others only when their metric was computed.
func writeArtifacts(dir string, m Metrics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("analysis: mkdir %s: %w", dir, err)
	}

	summary := [][]string{{"churn_percentage", "rows_analyzed"}}
	churn := ""
	if m.Summary.ChurnPercentage != nil {
		churn = formatFloat(*m.Summary.ChurnPercentage)
	}
	summary = append(summary, []string{churn, strconv.Itoa(m.Summary.RowsAnalyzed)})
	if err := writeCSV(filepath.Join(dir, SummaryFile), summary); err != nil {
		return err
	}
	log.Printf("analysis: saved summary metrics to %s", filepath.Join(dir, SummaryFile))

	if len(m.AvgByContract) > 0 {
		rows := [][]string{{"contract", "avg_monthly_charges"}}
		for _, r := range m.AvgByContract {
			rows = append(rows, []string{r.Contract, formatFloat(r.AvgMonthlyCharges)})
		}
		if err := writeCSV(filepath.Join(dir, AvgContractFile), rows); err != nil {
			return err
		}
	}

	if len(m.TenureCounts) > 0 {
		if err := writeCSV(filepath.Join(dir, TenureCountsFile), countRows("tenure_group", m.TenureCounts)); err != nil {
			return err
		}
	}
	if len(m.InternetDist) > 0 {
		if err := writeCSV(filepath.Join(dir, InternetDistFile), countRows("internet_service", m.InternetDist)); err != nil {
			return err
		}
	}

	if len(m.ChurnVsTenure) > 0 {
		rows := [][]string{{"tenure_group", "no_churn_pct", "churn_pct"}}
		for _, r := range m.ChurnVsTenure {
			rows = append(rows, []string{r.TenureGroup, formatFloat(r.NoChurnPct), formatFloat(r.ChurnPct)})
		}
		if err := writeCSV(filepath.Join(dir, PivotFile), rows); err != nil {
			return err
		}
	}
	return nil
}

func countRows(label string, counts []CountRow) [][]string {
	rows := [][]string{{label, "count"}}
	for _, r := range counts {
		rows = append(rows, []string{r.Value, strconv.Itoa(r.Count)})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("analysis: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("analysis: write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
