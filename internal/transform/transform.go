// Package transform implements the staging transformation for the customer
// churn dataset: numeric cleanup, derived bucket features, categorical
// encoding, column drops, and header normalization, written out as the
// staged CSV the load step picks up.
//
// The schema here is fixed on purpose. Unlike the analysis and validation
// stages, which tolerate drift in the remote store, a raw export missing any
// referenced column is a fatal error: the derived features cannot be
// computed from a partial schema, and guessing would poison everything
// downstream.
package transform

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	texttransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	csvparser "churnetl/internal/parser/csv"
	"churnetl/pkg/records"
)

// Raw column names referenced by the transformation steps. These must match
// the export exactly; there is no fuzzy matching at this stage.
const (
	colCustomerID      = "customerID"
	colGender          = "gender"
	colTenure          = "tenure"
	colMonthlyCharges  = "MonthlyCharges"
	colTotalCharges    = "TotalCharges"
	colContract        = "Contract"
	colInternetService = "InternetService"
	colMultipleLines   = "MultipleLines"
)

// Derived column names, already in the staged (lower-case) convention.
const (
	ColTenureGroup      = "tenure_group"
	ColChargeSegment    = "monthly_charge_segment"
	ColHasInternet      = "has_internet_service"
	ColMultiLineUser    = "is_multi_line_user"
	ColContractTypeCode = "contract_type_code"
)

// Tenure buckets: [0,13), [13,37), [37,61), [61,inf). Lower bound inclusive.
var (
	tenureEdges  = []float64{0, 13, 37, 61}
	tenureLabels = []string{"New", "Regular", "Loyal", "Champion"}
)

// Monthly-charge segments: (0,30], (30,70], (70,inf). Upper bound inclusive,
// deliberately the inverse edge convention from the tenure buckets; the
// validation stage's expectations depend on the asymmetry.
var (
	chargeEdges  = []float64{0, 30, 70}
	chargeLabels = []string{"Low", "Medium", "High"}
)

// requiredColumns is the full set the steps reference.
var requiredColumns = []string{
	colCustomerID, colGender, colTenure, colMonthlyCharges, colTotalCharges,
	colContract, colInternetService, colMultipleLines,
}

// Stage transforms a raw export into the staged dataset.
type Stage struct {
	// StagedPath is where the staged CSV is written.
	StagedPath string
}

// Result summarizes one transform run.
type Result struct {
	StagedPath string
	Rows       int
}

// Run reads the raw CSV at rawPath, applies the full transformation chain,
// and writes the staged CSV. It returns the staged location.
func (s Stage) Run(rawPath string) (Result, error) {
	header, recs, err := csvparser.NewParser(csvparser.Options{}).ParseFile(rawPath)
	if err != nil {
		return Result{}, fmt.Errorf("transform: %w", err)
	}

	if missing := missingColumns(header); len(missing) > 0 {
		return Result{}, fmt.Errorf("transform: raw file %s is missing required columns: %s",
			rawPath, strings.Join(missing, ", "))
	}

	chain := Chain{
		MeanImpute{Field: colTotalCharges},
		Bucket{
			Source: colTenure, Target: ColTenureGroup,
			Edges: tenureEdges, Labels: tenureLabels, Mode: LowerInclusive,
		},
		Bucket{
			Source: colMonthlyCharges, Target: ColChargeSegment,
			Edges: chargeEdges, Labels: chargeLabels, Mode: UpperInclusive,
		},
		MapValues{
			Source: colInternetService, Target: ColHasInternet,
			Mapping: map[string]any{"DSL": 1, "Fiber optic": 1, "No": 0},
		},
		MapValues{
			Source: colMultipleLines, Target: ColMultiLineUser,
			Mapping: map[string]any{"Yes": 1, "No": 0, "No phone service": 0},
		},
		MapValues{
			Source: colContract, Target: ColContractTypeCode,
			Mapping: map[string]any{"Month-to-month": 0, "One year": 1, "Two year": 2},
		},
		DropColumns{Names: []string{colCustomerID, colGender}},
	}
	recs = chain.Apply(recs)

	columns := stagedColumns(header)
	recs = lowercaseKeys(recs)

	if err := csvparser.WriteFile(s.StagedPath, columns, recs); err != nil {
		return Result{}, fmt.Errorf("transform: %w", err)
	}
	log.Printf("transform: %d rows staged at %s", len(recs), s.StagedPath)
	return Result{StagedPath: s.StagedPath, Rows: len(recs)}, nil
}

// missingColumns returns required columns absent from the header.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// stagedColumns is the output column order: the raw order minus the dropped
// columns, then the derived features in creation order, all normalized.
func stagedColumns(header []string) []string {
	out := make([]string, 0, len(header)+5)
	for _, h := range header {
		if h == colCustomerID || h == colGender {
			continue
		}
		out = append(out, normalizeKey(h))
	}
	return append(out,
		ColTenureGroup, ColChargeSegment, ColHasInternet, ColMultiLineUser, ColContractTypeCode)
}

// lowercaseKeys rewrites every record with normalized keys so downstream
// consumers can address columns case-insensitively by construction.
func lowercaseKeys(in []records.Record) []records.Record {
	for i, rec := range in {
		out := make(records.Record, len(rec))
		for k, v := range rec {
			out[normalizeKey(k)] = v
		}
		in[i] = out
	}
	return in
}

// keyFolder strips combining marks so accented headers normalize to plain
// ASCII before lowercasing.
var keyFolder = texttransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeKey lower-cases a column name, folding away diacritics.
func normalizeKey(name string) string {
	if folded, _, err := texttransform.String(keyFolder, name); err == nil {
		name = folded
	}
	return strings.ToLower(strings.TrimSpace(name))
}
