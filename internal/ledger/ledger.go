package ledger

import (
	"errors"
	"log"
	"strings"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

const (
	ColCompany        = "Company"
	ColWeek           = "Week"
	ColNewsDetected   = "News Detected"
	ColCategory       = "Category"
	ColDescription    = "Description"
	ColCompanyURL     = "Company URL"
	ColOtherURLs      = "Other URLs"
	ColPublishingDate = "Publishing Date"
	ColRunID          = "Run ID"

	legacyURL = "URL"
)

// Columns is the current ledger layout.
var Columns = []string{
	ColCompany, ColWeek, ColNewsDetected, ColCategory, ColDescription,
	ColCompanyURL, ColOtherURLs, ColPublishingDate, ColRunID,
}

type Detection string

const (
	Yes   Detection = "YES"
	No    Detection = "NO"
	Error Detection = "ERROR"
)

// Definitive reports whether d settles an (entity, week) pair.
func (d Detection) Definitive() bool {
	return d == Yes || d == No
}

type Row struct {
	Company        string
	Week           string
	Detected       Detection
	Category       string
	Description    string
	CompanyURL     string
	OtherURLs      string
	PublishingDate string
	RunID          string
}

func (r Row) sheetRow() sheet.Row {
	return sheet.Row{
		ColCompany:        r.Company,
		ColWeek:           r.Week,
		ColNewsDetected:   string(r.Detected),
		ColCategory:       r.Category,
		ColDescription:    r.Description,
		ColCompanyURL:     r.CompanyURL,
		ColOtherURLs:      r.OtherURLs,
		ColPublishingDate: r.PublishingDate,
		ColRunID:          r.RunID,
	}
}

func rowFromSheet(s sheet.Row) Row {
	return Row{
		Company:        s.Get(ColCompany),
		Week:           s.Get(ColWeek),
		Detected:       Detection(strings.ToUpper(s.Get(ColNewsDetected))),
		Category:       s.Get(ColCategory),
		Description:    s.Get(ColDescription),
		CompanyURL:     s.Get(ColCompanyURL),
		OtherURLs:      s.Get(ColOtherURLs),
		PublishingDate: s.Get(ColPublishingDate),
		RunID:          s.Get(ColRunID),
	}
}

// Ledger is the append-only table of weekly determinations.
type Ledger struct {
	table *sheet.Table
}

func New() *Ledger {
	return &Ledger{table: sheet.NewTable(Columns...)}
}

// Load reads the ledger and migrates older layouts. A missing file is an
// empty ledger; an unreadable one is logged and also treated as empty.
func Load(path string) (*Ledger, error) {
	t, err := sheet.Read(path)
	if err != nil {
		if errors.Is(err, sheet.ErrNotFound) {
			return New(), nil
		}
		log.Printf("ledger read_failed path=%s err=%q starting_fresh=true", path, err.Error())
		return New(), nil
	}
	Migrate(t)
	return &Ledger{table: t}, nil
}

// Migrate brings a table read from disk to the current layout. A legacy
// single URL column becomes Other URLs with an empty Company URL.
func Migrate(t *sheet.Table) {
	if t.Has(legacyURL) && !t.Has(ColCompanyURL) {
		for _, r := range t.Rows {
			r[ColOtherURLs] = r[legacyURL]
			r[ColCompanyURL] = ""
		}
		t.DropColumn(legacyURL)
	}
	for _, c := range Columns {
		t.EnsureColumn(c)
	}
}

func (l *Ledger) Save(path string) error {
	return sheet.Write(path, l.table)
}

func (l *Ledger) Table() *sheet.Table { return l.table }

func (l *Ledger) Len() int { return l.table.Len() }

func (l *Ledger) Rows() []Row {
	out := make([]Row, 0, l.table.Len())
	for _, r := range l.table.Rows {
		out = append(out, rowFromSheet(r))
	}
	return out
}

func (l *Ledger) Append(rows ...Row) {
	for _, r := range rows {
		l.table.Append(r.sheetRow(), Columns...)
	}
}

// Covered returns the companies with a definitive row for week.
func (l *Ledger) Covered(week string) map[string]bool {
	out := map[string]bool{}
	for _, r := range l.table.Rows {
		if r.Get(ColWeek) != week {
			continue
		}
		if Detection(strings.ToUpper(r.Get(ColNewsDetected))).Definitive() {
			out[r.Get(ColCompany)] = true
		}
	}
	return out
}
