package analysis

import (
	"fmt"
	"sort"
	"strings"

	"churnetl/pkg/records"
)

// Accepted spellings per logical column, tried in order. The store's schema
// may evolve (snake_case vs. flattened, codes vs. labels), so each metric
// resolves its columns case-insensitively against this list and skips itself
// when nothing matches; absence is logged, never fatal.
var (
	churnCandidates         = []string{"churn"}
	monthlyCandidates       = []string{"monthlycharges", "monthly_charges", "monthlycharge", "monthly_charge"}
	contractCandidates      = []string{"contract", "contract_type", "contract_type_code"}
	tenureGroupCandidates   = []string{"tenure_group", "tenuregroup"}
	chargeSegmentCandidates = []string{"monthly_charge_segment", "monthlycharges_segment"}
	totalCandidates         = []string{"totalcharges", "total_charges", "totalcharge"}
	internetCandidates      = []string{"internetservice", "internet_service"}
)

// findColumn returns the first candidate present in the record set,
// matching case-insensitively, together with the column's actual spelling.
// The union of keys across all records is considered because store rows are
// not guaranteed to carry identical key sets.
func findColumn(recs []records.Record, candidates []string) (string, bool) {
	lower := make(map[string]string)
	for _, rec := range recs {
		for k := range rec {
			lc := strings.ToLower(k)
			if _, seen := lower[lc]; !seen {
				lower[lc] = k
			}
		}
	}
	for _, cand := range candidates {
		if actual, ok := lower[strings.ToLower(cand)]; ok {
			return actual, true
		}
	}
	return "", false
}

// valueString renders a field for categorical grouping. Missing values
// become the explicit MissingLabel bucket; floats that carry integral values
// (JSON numbers for the contract codes) render without a decimal point.
func valueString(rec records.Record, col string) string {
	if rec.Missing(col) {
		return MissingLabel
	}
	v := rec[col]
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

// sortedKeys returns map keys in ascending order for deterministic output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
