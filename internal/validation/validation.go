// Package validation cross-checks the staged file against the remote store
// and reports a fixed list of data-quality findings. The stage is read-only
// and never fails on a finding: only a missing staged file aborts the run,
// and an unreachable store downgrades the row-count check to skipped.
package validation

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/zeebo/xxh3"

	csvparser "churnetl/internal/parser/csv"
	"churnetl/internal/store"
	"churnetl/pkg/records"
)

// Staged column names checked; the staged file is lower-cased by
// construction, so no fuzzy matching is needed here.
const (
	colTenure        = "tenure"
	colMonthly       = "monthlycharges"
	colTotal         = "totalcharges"
	colTenureGroup   = "tenure_group"
	colChargeSegment = "monthly_charge_segment"
	colContractCode  = "contract_type_code"

	// storeCountColumn is the single column fetched to count store rows
	// without pulling the whole table.
	storeCountColumn = "id"
)

// validContractCodes is the encoding domain the transform stage emits.
var validContractCodes = map[string]bool{"0": true, "1": true, "2": true}

// ColumnNulls is the null-count finding for one column. Present
// distinguishes "column missing entirely" from "zero nulls".
type ColumnNulls struct {
	Column  string
	Present bool
	Nulls   int
}

// SegmentProfile is the per-segment-column finding: null count plus the
// distinct non-null values in first-seen order, to surface unexpected
// categories introduced upstream.
type SegmentProfile struct {
	Column  string
	Present bool
	Nulls   int
	Values  []string
}

// Report aggregates all checks of one validation run.
type Report struct {
	StagedPath string
	Rows       int

	NullCounts []ColumnNulls

	DuplicateRows int

	// StoreRows is valid only when StoreChecked; an unreachable store
	// leaves the parity check skipped.
	StoreChecked bool
	StoreRows    int

	Segments []SegmentProfile

	ContractPresent      bool
	InvalidContractCodes []string
}

// Failures counts the findings that indicate a data defect. A skipped store
// check and an absent optional column are not failures.
func (r Report) Failures() int {
	n := 0
	for _, c := range r.NullCounts {
		if !c.Present || c.Nulls > 0 {
			n++
		}
	}
	if r.DuplicateRows > 0 {
		n++
	}
	if r.StoreChecked && r.StoreRows != r.Rows {
		n++
	}
	for _, s := range r.Segments {
		if !s.Present || s.Nulls > 0 {
			n++
		}
	}
	if !r.ContractPresent || len(r.InvalidContractCodes) > 0 {
		n++
	}
	return n
}

// Print writes the human-readable report, one line per check.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "validation report for %s (%d rows)\n", r.StagedPath, r.Rows)
	for _, c := range r.NullCounts {
		if !c.Present {
			fmt.Fprintf(w, "  [FAIL] nulls %-22s column missing\n", c.Column+":")
			continue
		}
		fmt.Fprintf(w, "  [%s] nulls %-22s %d\n", passFail(c.Nulls == 0), c.Column+":", c.Nulls)
	}
	fmt.Fprintf(w, "  [%s] duplicate rows:              %d\n", passFail(r.DuplicateRows == 0), r.DuplicateRows)
	if r.StoreChecked {
		fmt.Fprintf(w, "  [%s] store row count:             %d (staged %d)\n",
			passFail(r.StoreRows == r.Rows), r.StoreRows, r.Rows)
	} else {
		fmt.Fprintf(w, "  [SKIP] store row count:             store unreachable\n")
	}
	for _, s := range r.Segments {
		if !s.Present {
			fmt.Fprintf(w, "  [FAIL] segment %-20s column missing\n", s.Column+":")
			continue
		}
		fmt.Fprintf(w, "  [%s] segment %-20s nulls=%d values=[%s]\n",
			passFail(s.Nulls == 0), s.Column+":", s.Nulls, strings.Join(s.Values, " "))
	}
	if !r.ContractPresent {
		fmt.Fprintf(w, "  [FAIL] contract codes:              column missing\n")
	} else if len(r.InvalidContractCodes) > 0 {
		fmt.Fprintf(w, "  [FAIL] contract codes:              invalid values [%s]\n",
			strings.Join(r.InvalidContractCodes, " "))
	} else {
		fmt.Fprintf(w, "  [PASS] contract codes:              all in {0,1,2}\n")
	}
	fmt.Fprintf(w, "%d finding(s)\n", r.Failures())
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// Stage runs the checks. Store may be nil, which skips the parity check.
type Stage struct {
	StagedPath string
	Store      store.Client
	Table      string
}

// Run executes all checks and returns the aggregated report. The only error
// returned is a missing or unreadable staged file; everything else lands in
// the report.
func (s Stage) Run(ctx context.Context) (*Report, error) {
	if _, err := os.Stat(s.StagedPath); err != nil {
		return nil, fmt.Errorf("validation: staged file %s: %w", s.StagedPath, err)
	}
	columns, recs, err := csvparser.NewParser(csvparser.Options{}).ParseFile(s.StagedPath)
	if err != nil {
		return nil, fmt.Errorf("validation: read staged file: %w", err)
	}

	r := &Report{StagedPath: s.StagedPath, Rows: len(recs)}

	present := map[string]bool{}
	for _, c := range columns {
		present[c] = true
	}

	for _, col := range []string{colTenure, colMonthly, colTotal} {
		r.NullCounts = append(r.NullCounts, nullCount(recs, col, present[col]))
	}

	r.DuplicateRows = duplicateRows(columns, recs)

	if s.Store != nil {
		rows, err := s.Store.FetchColumn(ctx, s.Table, storeCountColumn)
		if err != nil {
			log.Printf("validation: store unreachable, skipping row-count check: %v", err)
		} else {
			r.StoreChecked = true
			r.StoreRows = len(rows)
		}
	}

	for _, col := range []string{colTenureGroup, colChargeSegment} {
		r.Segments = append(r.Segments, segmentProfile(recs, col, present[col]))
	}

	r.ContractPresent = present[colContractCode]
	if r.ContractPresent {
		r.InvalidContractCodes = invalidCodes(recs, colContractCode)
	}

	return r, nil
}

func nullCount(recs []records.Record, col string, present bool) ColumnNulls {
	c := ColumnNulls{Column: col, Present: present}
	if !present {
		return c
	}
	for _, rec := range recs {
		if rec.Missing(col) {
			c.Nulls++
		}
	}
	return c
}

// duplicateRows counts rows beyond the first occurrence of each identical
// row, hashing the canonical column-ordered serialization.
func duplicateRows(columns []string, recs []records.Record) int {
	seen := make(map[uint64]struct{}, len(recs))
	dups := 0
	var b strings.Builder
	for _, rec := range recs {
		b.Reset()
		for _, col := range columns {
			if s, ok := rec.String(col); ok {
				b.WriteString(s)
			}
			b.WriteByte(0x1f)
		}
		h := xxh3.HashString(b.String())
		if _, ok := seen[h]; ok {
			dups++
			continue
		}
		seen[h] = struct{}{}
	}
	return dups
}

func segmentProfile(recs []records.Record, col string, present bool) SegmentProfile {
	p := SegmentProfile{Column: col, Present: present}
	if !present {
		return p
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		if rec.Missing(col) {
			p.Nulls++
			continue
		}
		v := fmt.Sprint(rec[col])
		if !seen[v] {
			seen[v] = true
			p.Values = append(p.Values, v)
		}
	}
	return p
}

// invalidCodes lists the distinct non-null values outside {0,1,2} in
// first-seen order. Nulls are the null check's business, not this one's.
func invalidCodes(recs []records.Record, col string) []string {
	seen := map[string]bool{}
	var invalid []string
	for _, rec := range recs {
		if rec.Missing(col) {
			continue
		}
		v := fmt.Sprint(rec[col])
		if validContractCodes[v] {
			continue
		}
		if !seen[v] {
			seen[v] = true
			invalid = append(invalid, v)
		}
	}
	return invalid
}
