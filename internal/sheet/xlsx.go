package sheet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// ErrNotFound is returned by Read when the workbook does not exist.
var ErrNotFound = errors.New("workbook not found")

// Read loads the first worksheet. Blank trailing cells read as empty and
// rows with no values are skipped.
func Read(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows %s: %w", path, err)
	}
	t := NewTable()
	if len(rows) == 0 {
		return t, nil
	}
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		t.Headers = append(t.Headers, h)
	}
	for _, cells := range rows[1:] {
		row := Row{}
		empty := true
		for i, h := range t.Headers {
			if i < len(cells) {
				row[h] = cells[i]
				if strings.TrimSpace(cells[i]) != "" {
					empty = false
				}
			}
		}
		if !empty {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// Write saves the table as a single-sheet workbook. The file is written
// next to path and renamed into place so a failed save leaves the previous
// file intact.
func Write(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(defaultSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range t.Rows {
		vals := make([]any, len(t.Headers))
		for j, h := range t.Headers {
			vals[j] = r[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(defaultSheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// BackupPath returns "<name>_backup.xlsx" next to path.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

// Backup copies path to BackupPath(path) and returns the backup location.
func Backup(path string) (string, error) {
	dst := BackupPath(path)
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", err
	}
	return dst, out.Close()
}
