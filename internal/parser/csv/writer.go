package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"churnetl/pkg/records"
)

// Write renders records as CSV in the given column order. Values are
// formatted so that a later Parse round-trips them exactly:
//
//   - nil          -> empty cell (missing)
//   - string       -> as-is
//   - int          -> base-10
//   - float64      -> shortest representation that parses back identically
//   - anything else-> fmt.Sprint fallback
func Write(w io.Writer, columns []string, recs []records.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	row := make([]string, len(columns))
	for i, rec := range recs {
		for j, col := range columns {
			row[j] = formatValue(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to path, creating parent directories as needed.
func WriteFile(path string, columns []string, recs []records.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csv: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create %s: %w", path, err)
	}
	if err := Write(f, columns, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
