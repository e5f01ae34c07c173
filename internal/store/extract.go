package store

import "churnetl/pkg/records"

// ExtractRows normalizes the variant response envelopes the store's query
// API has been observed to return into one canonical []records.Record.
//
// Accepted shapes, tried in order:
//
//  1. a bare JSON array of objects:            [ {...}, {...} ]
//  2. an object wrapping the array:            { "data": [ {...} ] }
//  3. an array wrapping the array (older
//     client envelopes):                       [ [ {...}, {...} ], "count" ]
//
// Anything else, including null and scalar responses, yields an empty slice.
// The function is pure so the envelope handling can be tested without any
// network code.
func ExtractRows(v any) []records.Record {
	switch t := v.(type) {
	case []any:
		// Prefer a nested list of objects (shape 3).
		for _, item := range t {
			if inner, ok := item.([]any); ok {
				if recs, ok := objectList(inner); ok {
					return recs
				}
			}
		}
		// Fall back to the bare list (shape 1); non-object elements are
		// skipped rather than failing the whole response.
		if recs, ok := objectList(t); ok {
			return recs
		}
	case map[string]any:
		if data, ok := t["data"].([]any); ok {
			if recs, ok := objectList(data); ok {
				return recs
			}
		}
	}
	return []records.Record{}
}

// objectList converts a []any whose elements are JSON objects into records.
// ok is false when the list contains no objects at all, so callers can keep
// probing other shapes.
func objectList(items []any) ([]records.Record, bool) {
	recs := make([]records.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			recs = append(recs, records.Record(m))
		}
	}
	if len(recs) == 0 && len(items) > 0 {
		return nil, false
	}
	return recs, true
}
