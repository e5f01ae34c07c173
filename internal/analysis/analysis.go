// Package analysis reads the loaded customer table back from the remote
// store and produces the reporting artifacts: a fixed set of aggregate
// metrics, one churn-vs-tenure pivot, and optional chart renderings of the
// same aggregates.
//
// The stage is deliberately tolerant: every metric resolves its columns
// fuzzily and skips itself (logged) when a column is absent, the store
// degrading to an empty row set is a reportable outcome rather than a
// failure, and chart rendering can fail without affecting any tabular
// artifact.
package analysis

import (
	"context"
	"log"
	"sort"
	"strings"

	"churnetl/internal/store"
	"churnetl/pkg/records"
)

// MissingLabel is the explicit bucket categorical frequency tables use for
// missing values; excluding them would hide exactly the rows worth seeing.
const MissingLabel = "MISSING"

// churnTruthy is the set of accepted truthy spellings of the churn flag,
// compared after trimming and lower-casing.
var churnTruthy = map[string]bool{"yes": true, "true": true, "1": true, "y": true}

// Summary is the top-level metric row, always written even when every other
// metric was skipped. ChurnPercentage is nil when the churn column was
// absent or no rows were analyzed.
type Summary struct {
	ChurnPercentage *float64
	RowsAnalyzed    int
}

// ContractMean is one row of the average-monthly-charge-per-contract metric.
type ContractMean struct {
	Contract          string
	AvgMonthlyCharges float64
}

// CountRow is one row of a categorical frequency table.
type CountRow struct {
	Value string
	Count int
}

// PivotRow is one row of the churn-vs-tenure pivot: the two percentages sum
// to 100 for every tenure group, the MISSING bucket included.
type PivotRow struct {
	TenureGroup string
	NoChurnPct  float64
	ChurnPct    float64
}

// Metrics holds everything one analysis pass computed. Slices are nil when
// the metric was skipped for lack of columns.
type Metrics struct {
	Summary       Summary
	AvgByContract []ContractMean
	TenureCounts  []CountRow
	InternetDist  []CountRow
	ChurnVsTenure []PivotRow
}

// Stage fetches the table and writes the analysis artifacts.
type Stage struct {
	Store store.Client
	Table string

	// ProcessedDir receives the CSV artifacts, the SQLite reporting DB, and
	// the chart images.
	ProcessedDir string

	// Limit caps the fetch when > 0.
	Limit int

	// Charts enables the optional PNG renderings.
	Charts bool
}

// Run executes the full analysis pass. Store connectivity problems degrade
// to an empty row set so the run still produces the summary artifact.
func (s Stage) Run(ctx context.Context) error {
	log.Printf("analysis: fetching table %q", s.Table)
	rows, err := s.Store.FetchAll(ctx, s.Table, s.Limit)
	if err != nil {
		log.Printf("analysis: fetch failed (%v); continuing with no data", err)
		rows = nil
	}
	if len(rows) == 0 {
		log.Printf("analysis: no rows extracted from store")
	}

	coerceNumerics(rows)
	m := Compute(rows)

	if err := writeArtifacts(s.ProcessedDir, m); err != nil {
		return err
	}
	if err := writeSQLite(ctx, s.ProcessedDir, m); err != nil {
		// The reporting DB duplicates the CSVs for ad-hoc SQL; losing it
		// must not fail a run whose primary artifacts are already on disk.
		log.Printf("analysis: sqlite sink: %v", err)
	}
	if s.Charts && len(rows) > 0 {
		if err := renderCharts(s.ProcessedDir, rows); err != nil {
			log.Printf("analysis: plotting failed: %v", err)
		}
	}
	log.Printf("analysis: finished, artifacts in %s", s.ProcessedDir)
	return nil
}

// coerceNumerics parses the monthly and total charge columns to float64 in
// place, turning unparseable values into missing, so means and histograms
// operate on numbers regardless of how the store serialized them.
func coerceNumerics(rows []records.Record) {
	for _, candidates := range [][]string{monthlyCandidates, totalCandidates} {
		col, ok := findColumn(rows, candidates)
		if !ok {
			continue
		}
		for _, rec := range rows {
			if f, ok := rec.Float(col); ok {
				rec[col] = f
			} else {
				rec[col] = nil
			}
		}
	}
}

// Compute derives every metric the row set's columns allow. It is pure so
// the aggregate semantics are testable without a store or filesystem.
func Compute(rows []records.Record) Metrics {
	m := Metrics{Summary: Summary{RowsAnalyzed: len(rows)}}
	if len(rows) == 0 {
		return m
	}

	churnCol, hasChurn := findColumn(rows, churnCandidates)
	if hasChurn {
		yes := 0
		for _, rec := range rows {
			if churnFlag(rec, churnCol) {
				yes++
			}
		}
		pct := float64(yes) / float64(len(rows)) * 100
		m.Summary.ChurnPercentage = &pct
	} else {
		log.Printf("analysis: churn column not found; skipping churn rate")
	}

	monthlyCol, hasMonthly := findColumn(rows, monthlyCandidates)
	contractCol, hasContract := findColumn(rows, contractCandidates)
	if hasMonthly && hasContract {
		m.AvgByContract = avgByGroup(rows, contractCol, monthlyCol)
	} else {
		log.Printf("analysis: contract/monthly columns not found; skipping contract averages")
	}

	if col, ok := findColumn(rows, tenureGroupCandidates); ok {
		m.TenureCounts = frequency(rows, col)
	} else {
		log.Printf("analysis: tenure group column not found; skipping tenure counts")
	}

	if col, ok := findColumn(rows, internetCandidates); ok {
		m.InternetDist = frequency(rows, col)
	} else {
		log.Printf("analysis: internet service column not found; skipping distribution")
	}

	if tenureCol, ok := findColumn(rows, tenureGroupCandidates); ok && hasChurn {
		m.ChurnVsTenure = churnPivot(rows, tenureCol, churnCol)
	} else {
		log.Printf("analysis: churn/tenure group columns not found; skipping pivot")
	}

	return m
}

// churnFlag interprets the churn field as boolean using the accepted truthy
// spellings; anything else, including missing, counts as not churned.
func churnFlag(rec records.Record, col string) bool {
	if rec.Missing(col) {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(valueString(rec, col)))
	return churnTruthy[s]
}

// avgByGroup computes the mean of numCol per distinct value of groupCol,
// one output row per group (missing grouped under MissingLabel), ordered by
// group value. Rows whose numeric value is missing are excluded from both
// sum and count.
func avgByGroup(rows []records.Record, groupCol, numCol string) []ContractMean {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range rows {
		if f, ok := rec.Float(numCol); ok {
			g := valueString(rec, groupCol)
			sums[g] += f
			counts[g]++
		}
	}
	out := make([]ContractMean, 0, len(counts))
	for _, g := range sortedKeys(counts) {
		out = append(out, ContractMean{Contract: g, AvgMonthlyCharges: sums[g] / float64(counts[g])})
	}
	return out
}

// frequency builds a value-count table over col, missing values counted
// under MissingLabel, ordered by descending count then value.
func frequency(rows []records.Record, col string) []CountRow {
	counts := map[string]int{}
	for _, rec := range rows {
		counts[valueString(rec, col)]++
	}
	out := make([]CountRow, 0, len(counts))
	for v, n := range counts {
		out = append(out, CountRow{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// churnPivot cross-tabulates tenure group against the churn flag as
// row-normalized percentages; every group's pair sums to 100.
func churnPivot(rows []records.Record, tenureCol, churnCol string) []PivotRow {
	churned := map[string]int{}
	total := map[string]int{}
	for _, rec := range rows {
		g := valueString(rec, tenureCol)
		total[g]++
		if churnFlag(rec, churnCol) {
			churned[g]++
		}
	}
	out := make([]PivotRow, 0, len(total))
	for _, g := range sortedKeys(total) {
		pct := float64(churned[g]) / float64(total[g]) * 100
		out = append(out, PivotRow{TenureGroup: g, ChurnPct: pct, NoChurnPct: 100 - pct})
	}
	return out
}
