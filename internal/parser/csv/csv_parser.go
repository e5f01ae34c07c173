// Package csv reads and writes the tabular files handled by the pipeline:
// the raw customer export, the staged dataset, and the analysis artifacts.
// It wraps encoding/csv with the small amount of defensiveness real-world
// exports need (BOM stripping, lenient quotes, blank-line tolerance) while
// preserving column order, which encoding/csv alone does not track for
// record-shaped data.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"churnetl/pkg/records"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Options configures the CSV parser behavior. All fields are optional;
// sensible defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing ASCII spaces from each field value.
	TrimSpace bool
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads the entire input and returns the header (in file order) plus
// one Record per data row. The first row is always treated as the header.
//
// Behavior:
//   - A UTF-8 BOM on the first header cell is stripped.
//   - Quoting is lenient (LazyQuotes) and leading spaces are ignored, since
//     hand-exported CSVs frequently violate strict quoting.
//   - Rows with a field count different from the header are padded or
//     truncated to the header width so downstream consumers can rely on a
//     stable column set.
//   - Empty cells become empty strings; interpreting them as missing is the
//     consumer's concern (records.Record.Missing does exactly that).
func (p *Parser) Parse(r io.Reader) ([]string, []records.Record, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("csv: read header: %w", err)
	}
	header = stripHeaderBOM(header)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var recs []records.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("csv: read row %d: %w", len(recs)+2, err)
		}
		rec := make(records.Record, len(header))
		for i, name := range header {
			var v string
			if i < len(row) {
				v = row[i]
			}
			if p.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			rec[name] = v
		}
		recs = append(recs, rec)
	}
	return header, recs, nil
}

// ParseFile opens path and parses it with Parse.
func (p *Parser) ParseFile(path string) ([]string, []records.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}
