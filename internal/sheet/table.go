package sheet

import "strings"

// Row maps header name to cell text.
type Row map[string]string

// Table is the first worksheet of a workbook: a header row and data rows.
type Table struct {
	Headers []string
	Rows    []Row
}

func NewTable(headers ...string) *Table {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Table{Headers: h}
}

func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

func (t *Table) Index(column string) int {
	for i, h := range t.Headers {
		if h == column {
			return i
		}
	}
	return -1
}

// EnsureColumn appends column to the headers when absent. Existing rows
// read it as empty.
func (t *Table) EnsureColumn(column string) {
	if !t.Has(column) {
		t.Headers = append(t.Headers, column)
	}
}

// RenameColumn renames a header and the matching key in every row.
func (t *Table) RenameColumn(from, to string) {
	i := t.Index(from)
	if i < 0 {
		return
	}
	t.Headers[i] = to
	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

func (t *Table) DropColumn(column string) {
	i := t.Index(column)
	if i < 0 {
		return
	}
	t.Headers = append(t.Headers[:i], t.Headers[i+1:]...)
	for _, r := range t.Rows {
		delete(r, column)
	}
}

// Append adds a row, extending the headers with any column it introduces
// in the order given by columns.
func (t *Table) Append(r Row, columns ...string) {
	for _, c := range columns {
		t.EnsureColumn(c)
	}
	t.Rows = append(t.Rows, r)
}

// Column returns the trimmed non-empty values of one column in row order.
func (t *Table) Column(column string) []string {
	var out []string
	for _, r := range t.Rows {
		if v := strings.TrimSpace(r[column]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (t *Table) Len() int { return len(t.Rows) }

func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}
