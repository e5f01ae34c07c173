// Package records defines the canonical row representation shared by every
// pipeline stage. A Record is a field-name-to-value mapping; values are
// whatever the producing stage put there (string straight from CSV, float64
// after numeric coercion, int for categorical codes, nil for missing).
//
// The typed accessors perform only minimal coercion and report absence
// explicitly so callers never have to guess what a zero value means.
package records

import "strconv"

// Record is one row of customer data keyed by column name.
type Record map[string]any

// Missing reports whether the field is absent, nil, or an empty string.
// An empty string is treated as missing because that is how blank CSV cells
// arrive from the parser.
func (r Record) Missing(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// String returns the field as a string. Non-string values are not converted;
// ok is false for absent, nil, or non-string values.
func (r Record) String(field string) (string, bool) {
	v, exists := r[field]
	if !exists || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the field as a float64. Strings are parsed; int and float64
// pass through. ok is false when the field is missing or not numeric.
func (r Record) Float(field string) (float64, bool) {
	v, exists := r[field]
	if !exists || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		if t == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Clone returns a shallow copy of the record. Stages that rewrite values in
// place can clone first when the caller must keep the original intact.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
