// Package probe profiles a raw customer CSV before it enters the pipeline:
// one line per column with an inferred type, null count, distinct count, and
// a normalized name suggestion. It is a development aid for checking a new
// raw export against the schema the transform stage expects.
package probe

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	csvparser "churnetl/internal/parser/csv"
	"churnetl/pkg/records"
)

// Options control sampling behavior.
type Options struct {
	// MaxRows caps the number of data rows profiled. Zero means all rows.
	MaxRows int
}

// ColumnProfile is the per-column result.
type ColumnProfile struct {
	// Name is the header as it appears in the file.
	Name string
	// Suggested is the normalized lowercase identifier for the column.
	Suggested string
	// Type is the inferred type: integer, real, boolean, or text.
	Type string
	// Nulls counts empty cells in the sample.
	Nulls int
	// Distinct counts distinct non-empty values in the sample.
	Distinct int
}

// Profile reads the file and profiles every column. Columns are profiled
// concurrently; each owns its slice of the parsed rows, so no locking is
// needed.
func Profile(path string, opt Options) ([]ColumnProfile, error) {
	columns, recs, err := csvparser.NewParser(csvparser.Options{TrimSpace: true}).ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if opt.MaxRows > 0 && len(recs) > opt.MaxRows {
		recs = recs[:opt.MaxRows]
	}

	profiles := make([]ColumnProfile, len(columns))
	var g errgroup.Group
	for i, col := range columns {
		i, col := i, col
		g.Go(func() error {
			profiles[i] = profileColumn(col, recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func profileColumn(col string, recs []records.Record) ColumnProfile {
	p := ColumnProfile{Name: col, Suggested: normalizeFieldName(col)}

	distinct := map[string]struct{}{}
	var values []string
	for _, rec := range recs {
		s, _ := rec.String(col)
		s = strings.TrimSpace(s)
		if s == "" {
			p.Nulls++
			continue
		}
		distinct[s] = struct{}{}
		values = append(values, s)
	}
	p.Distinct = len(distinct)
	p.Type = inferType(values)
	return p
}

// WriteTable renders the profiles as aligned text, one column per line.
func WriteTable(w io.Writer, profiles []ColumnProfile) {
	fmt.Fprintf(w, "%-24s %-24s %-8s %8s %9s\n", "COLUMN", "SUGGESTED", "TYPE", "NULLS", "DISTINCT")
	for _, p := range profiles {
		fmt.Fprintf(w, "%-24s %-24s %-8s %8d %9d\n", p.Name, p.Suggested, p.Type, p.Nulls, p.Distinct)
	}
}

// inferType guesses a type among integer, real, boolean, text.
// Heuristic: every non-empty value must satisfy the narrower type.
func inferType(values []string) string {
	if len(values) == 0 {
		return "text"
	}
	if allMatch(values, isInt) {
		return "integer"
	}
	if allMatch(values, isBool) {
		return "boolean"
	}
	if allMatch(values, isFloat) {
		return "real"
	}
	return "text"
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// isBool accepts common textual booleans and 1/0.
func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	default:
		return false
	}
}

// isInt requires a signed base-10 integer that fits in int64.
func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isFloat accepts decimal or scientific notation floats. Values that parse
// as int are NOT floats, to keep ints as integer.
func isFloat(s string) bool {
	if isInt(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// normalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier suitable for SQL schemas:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		default:
			// drop anything else
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
