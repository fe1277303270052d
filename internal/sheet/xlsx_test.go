package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteReadRoundTripPreservesColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.xlsx")
	tbl := NewTable("Company", "Type", "Webpage")
	tbl.Append(Row{"Company": "BASF", "Type": "producer", "Webpage": "www.basf.com"})
	tbl.Append(Row{"Company": "Novamont", "Type": "producer"})
	if err := Write(path, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Headers) != 3 || got.Headers[2] != "Webpage" {
		t.Fatalf("unexpected headers %v", got.Headers)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	if got.Rows[1].Get("Webpage") != "" || got.Rows[0].Get("Webpage") != "www.basf.com" {
		t.Fatalf("unexpected rows %+v", got.Rows)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "companies.tmp.xlsx")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xlsx"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTableColumnOperations(t *testing.T) {
	tbl := NewTable("Company", "URL")
	tbl.Append(Row{"Company": "A", "URL": "https://a"})
	tbl.RenameColumn("URL", "Other URLs")
	tbl.EnsureColumn("Company URL")
	if tbl.Index("Other URLs") != 1 || !tbl.Has("Company URL") {
		t.Fatalf("unexpected headers %v", tbl.Headers)
	}
	if tbl.Rows[0].Get("Other URLs") != "https://a" {
		t.Fatalf("expected renamed value, got %+v", tbl.Rows[0])
	}
	tbl.DropColumn("Company URL")
	if tbl.Has("Company URL") {
		t.Fatal("expected column dropped")
	}
	if got := tbl.Column("Company"); len(got) != 1 || got[0] != "A" {
		t.Fatalf("unexpected column values %v", got)
	}
}

func TestBackupCopiesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.xlsx")
	if err := Write(path, NewTable("Company")); err != nil {
		t.Fatalf("write: %v", err)
	}
	dst, err := Backup(path)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if filepath.Base(dst) != "companies_backup.xlsx" {
		t.Fatalf("unexpected backup name %s", dst)
	}
	if _, err := Read(dst); err != nil {
		t.Fatalf("expected readable backup: %v", err)
	}
}

func TestFormatAddsHyperlinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.xlsx")
	tbl := NewTable("Company", "Webpage", "Description")
	tbl.Append(Row{"Company": "BASF", "Webpage": "www.basf.com", "Description": "Chemicals"})
	if err := Write(path, tbl); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Format(path, CompanyLayout); err != nil {
		t.Fatalf("format: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	ok, link, err := f.GetCellHyperLink("Sheet1", "B2")
	if err != nil {
		t.Fatalf("hyperlink: %v", err)
	}
	if !ok || link != "https://www.basf.com" {
		t.Fatalf("expected hyperlink to https://www.basf.com, got %v %q", ok, link)
	}
	w, err := f.GetColWidth("Sheet1", "A")
	if err != nil || w != 25 {
		t.Fatalf("expected width 25, got %v %v", w, err)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"www.basf.com":         "https://www.basf.com",
		" http://novamont.com": "http://novamont.com",
		"https://corbion.com":  "https://corbion.com",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Fatalf("NormalizeURL(%q): expected %q, got %q", in, want, got)
		}
	}
}
