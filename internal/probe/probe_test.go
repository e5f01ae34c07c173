package probe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

/*
TestProfile verifies the per-column profile over a small raw file: header
names preserved, normalized suggestions, inferred types, null and distinct
counts.
*/
func TestProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	data := "customerID,tenure,MonthlyCharges,Multiple Lines,Churn\n" +
		"A-1,1,29.85,No,Yes\n" +
		"B-2,34,56.95,Yes,No\n" +
		"C-3,2,,No,No\n" +
		"D-4,45,42.3,No,No\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	profiles, err := Profile(path, Options{})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if len(profiles) != 5 {
		t.Fatalf("columns=%d; want 5", len(profiles))
	}

	byName := map[string]ColumnProfile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}

	if p := byName["tenure"]; p.Type != "integer" || p.Nulls != 0 || p.Distinct != 4 {
		t.Errorf("tenure=%+v; want integer, 0 nulls, 4 distinct", p)
	}
	if p := byName["MonthlyCharges"]; p.Type != "real" || p.Nulls != 1 || p.Distinct != 3 {
		t.Errorf("MonthlyCharges=%+v; want real, 1 null, 3 distinct", p)
	}
	if p := byName["Churn"]; p.Type != "boolean" {
		t.Errorf("Churn=%+v; want boolean", p)
	}
	if p := byName["customerID"]; p.Type != "text" || p.Suggested != "customerid" {
		t.Errorf("customerID=%+v; want text, suggested customerid", p)
	}
	if p := byName["Multiple Lines"]; p.Suggested != "multiple_lines" {
		t.Errorf("suggested=%q; want multiple_lines", p.Suggested)
	}
}

/*
TestProfile_MaxRows verifies row capping: nulls past the cap are not counted.
*/
func TestProfile_MaxRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	data := "a,b\n1,x\n2,y\n,z\n,w\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	profiles, err := Profile(path, Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p := profiles[0]; p.Nulls != 0 || p.Distinct != 2 {
		t.Errorf("profile=%+v; want 0 nulls, 2 distinct within cap", p)
	}
}

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MonthlyCharges", "monthlycharges"},
		{"Multiple Lines", "multiple_lines"},
		{"Tenuré", "tenure"},
		{"  total-charges.v2 ", "total_charges_v2"},
		{"***", "col"},
	}
	for _, tt := range tests {
		if got := normalizeFieldName(tt.in); got != tt.want {
			t.Errorf("normalizeFieldName(%q)=%q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteTable(t *testing.T) {
	var b strings.Builder
	WriteTable(&b, []ColumnProfile{{Name: "tenure", Suggested: "tenure", Type: "integer", Nulls: 0, Distinct: 4}})
	out := b.String()
	if !strings.Contains(out, "COLUMN") || !strings.Contains(out, "tenure") {
		t.Errorf("table output missing content:\n%s", out)
	}
}
