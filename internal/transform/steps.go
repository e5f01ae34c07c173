package transform

import (
	"churnetl/pkg/records"
)

// Step is one in-place transformation over the full record set. Steps are
// chained in a fixed order by the Stage; each receives the output of the
// previous one.
type Step interface {
	Apply(in []records.Record) []records.Record
}

// Chain is an ordered list of steps.
type Chain []Step

// Apply runs every step in order and returns the final record set.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, s := range c {
		out = s.Apply(out)
	}
	return out
}

// MeanImpute parses Field as a number in every record and fills values that
// fail numeric parsing (or are blank) with the column mean.
//
// The mean is computed over the valid values only, before any filling, so
// imputed rows never influence the mean they are assigned. Valid values are
// coerced to float64 in place; when no value in the column parses at all,
// the column is left missing rather than filled with a fabricated zero.
type MeanImpute struct {
	Field string
}

// Apply implements Step.
func (m MeanImpute) Apply(in []records.Record) []records.Record {
	var sum float64
	var n int
	for _, rec := range in {
		if f, ok := rec.Float(m.Field); ok {
			rec[m.Field] = f
			sum += f
			n++
		}
	}
	if n == 0 {
		for _, rec := range in {
			rec[m.Field] = nil
		}
		return in
	}

	mean := sum / float64(n)
	for _, rec := range in {
		if _, ok := rec.Float(m.Field); !ok {
			rec[m.Field] = mean
		}
	}
	return in
}

// EdgeMode selects which side of a bucket boundary is inclusive.
type EdgeMode int

const (
	// LowerInclusive buckets are [lo, hi): a value equal to a boundary
	// belongs to the bucket that starts at that boundary.
	LowerInclusive EdgeMode = iota

	// UpperInclusive buckets are (lo, hi]: a value equal to a boundary
	// belongs to the bucket that ends at that boundary.
	UpperInclusive
)

// Bucket derives a labeled range column from a numeric column using a fixed
// partition of the number line. Edges lists the finite boundaries in
// increasing order; the last bucket is unbounded above, so len(Labels) must
// equal len(Edges).
//
// Values outside every bucket (below the first edge, or equal to it in
// UpperInclusive mode) and values that fail numeric parsing produce a
// missing target. They are never silently dropped; the validation stage
// counts segment nulls precisely to surface them.
type Bucket struct {
	Source string
	Target string
	Edges  []float64
	Labels []string
	Mode   EdgeMode
}

// Apply implements Step.
func (b Bucket) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		v, ok := rec.Float(b.Source)
		if !ok {
			rec[b.Target] = nil
			continue
		}
		rec[b.Target] = b.label(v)
	}
	return in
}

// label returns the bucket label for v, or nil when v precedes the first
// bucket.
func (b Bucket) label(v float64) any {
	below := v < b.Edges[0]
	if b.Mode == UpperInclusive {
		below = v <= b.Edges[0]
	}
	if below {
		return nil
	}

	idx := len(b.Edges) - 1
	for i := 1; i < len(b.Edges); i++ {
		inBucket := v < b.Edges[i]
		if b.Mode == UpperInclusive {
			inBucket = v <= b.Edges[i]
		}
		if inBucket {
			idx = i - 1
			break
		}
	}
	return b.Labels[idx]
}

// MapValues derives Target by looking Source up in a fixed mapping. Values
// absent from the mapping, including missing ones, map to missing: encoding
// steps must never default an unknown category to a real code.
type MapValues struct {
	Source  string
	Target  string
	Mapping map[string]any
}

// Apply implements Step.
func (m MapValues) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		s, ok := rec.String(m.Source)
		if !ok {
			rec[m.Target] = nil
			continue
		}
		if mapped, exists := m.Mapping[s]; exists {
			rec[m.Target] = mapped
		} else {
			rec[m.Target] = nil
		}
	}
	return in
}

// DropColumns removes identifying and non-feature columns so they cannot
// leak into the staged output.
type DropColumns struct {
	Names []string
}

// Apply implements Step.
func (d DropColumns) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		for _, name := range d.Names {
			delete(rec, name)
		}
	}
	return in
}
