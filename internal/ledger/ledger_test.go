package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

var fixedNow = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC) // 2025-W42

func TestTargetWeekSkipsFullyCoveredWeek(t *testing.T) {
	l := New()
	l.Append(
		Row{Company: "A", Week: "2025-W42", Detected: Yes},
		Row{Company: "B", Week: "2025-W42", Detected: No},
	)
	got := TargetWeek([]string{"A", "B"}, l, fixedNow)
	if got.String() != "2025-W41" {
		t.Fatalf("expected 2025-W41, got %s", got)
	}
}

func TestTargetWeekErrorRowIsNotDefinitive(t *testing.T) {
	l := New()
	l.Append(
		Row{Company: "A", Week: "2025-W42", Detected: Yes},
		Row{Company: "B", Week: "2025-W42", Detected: Error},
	)
	if got := TargetWeek([]string{"A", "B"}, l, fixedNow); got.String() != "2025-W42" {
		t.Fatalf("expected 2025-W42, got %s", got)
	}
}

func TestTargetWeekWalksSeveralWeeks(t *testing.T) {
	l := New()
	for _, w := range []string{"2025-W42", "2025-W41", "2025-W40"} {
		l.Append(Row{Company: "A", Week: w, Detected: No})
	}
	if got := TargetWeek([]string{"A"}, l, fixedNow); got.String() != "2025-W39" {
		t.Fatalf("expected 2025-W39, got %s", got)
	}
}

func TestTargetWeekEmptyLedgerAndRoster(t *testing.T) {
	if got := TargetWeek([]string{"A"}, New(), fixedNow); got.String() != "2025-W42" {
		t.Fatalf("expected current week, got %s", got)
	}
	if got := TargetWeek(nil, New(), fixedNow); got.String() != "2025-W42" {
		t.Fatalf("expected current week for empty roster, got %s", got)
	}
}

func TestLoadMigratesLegacyURLColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies_news.xlsx")
	tbl := sheet.NewTable("Company", "Week", "News Detected", "Description", "URL")
	tbl.Append(sheet.Row{"Company": "BASF", "Week": "2025-W40", "News Detected": "YES", "Description": "d", "URL": "https://news.example/basf"})
	if err := sheet.Write(path, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Table().Has("URL") {
		t.Fatal("expected legacy URL column removed")
	}
	for _, c := range Columns {
		if !l.Table().Has(c) {
			t.Fatalf("expected column %s after migration", c)
		}
	}
	rows := l.Rows()
	if rows[0].OtherURLs != "https://news.example/basf" || rows[0].CompanyURL != "" || rows[0].Category != "" {
		t.Fatalf("unexpected migrated row %+v", rows[0])
	}
	if rows[0].Detected != Yes {
		t.Fatalf("expected YES, got %q", rows[0].Detected)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d rows", l.Len())
	}
}

func TestSaveAndReloadAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies_news.xlsx")
	l := New()
	l.Append(Row{Company: "A", Week: "2025-W42", Detected: Yes, Category: "M&A", CompanyURL: "https://a.com/x", PublishingDate: "2025-10-14", RunID: "r1"})
	if err := l.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	again.Append(Row{Company: "B", Week: "2025-W42", Detected: No, RunID: "r2"})
	if err := again.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	final, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rows := final.Rows()
	if len(rows) != 2 || rows[0].CompanyURL != "https://a.com/x" || rows[1].Detected != No {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if cov := final.Covered("2025-W42"); !cov["A"] || !cov["B"] {
		t.Fatalf("expected both covered, got %v", cov)
	}
}
