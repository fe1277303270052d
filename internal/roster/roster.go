package roster

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

const (
	ColCompany          = "Company"
	ColType             = "Type"
	ColWebpage          = "Webpage"
	ColDateAdded        = "Date Added"
	ColCountry          = "Country"
	ColDescription      = "Description"
	ColPrimaryMaterials = "Primary Materials"
	ColMarketSegments   = "Market Segments"
	ColStatus           = "Status"
	ColPubliclyListed   = "Publicly Listed"
	ColStockTicker      = "Stock Ticker"
	ColRSSFeed          = "RSS Feed URL"
	ColNewsSection      = "News Section URL"
)

var positional = []string{ColCompany, ColType, ColWebpage, ColDateAdded}

// Company is the typed view of one roster row.
type Company struct {
	Name      string
	Type      string
	Webpage   string
	DateAdded string
}

// Roster is the company table. Columns it does not know about are kept.
type Roster struct {
	Table *sheet.Table
}

func New() *Roster {
	return &Roster{Table: sheet.NewTable(positional...)}
}

// Load reads the roster workbook. A sheet without a Company header is read
// positionally as Company, Type, Webpage, Date Added.
func Load(path string) (*Roster, error) {
	t, err := sheet.Read(path)
	if err != nil {
		return nil, err
	}
	if len(t.Headers) < 3 && !t.Has(ColCompany) {
		return nil, fmt.Errorf("roster %s: expected at least 3 columns, got %d", path, len(t.Headers))
	}
	if !t.Has(ColCompany) {
		for i := 0; i < len(positional) && i < len(t.Headers); i++ {
			t.RenameColumn(t.Headers[i], positional[i])
		}
	}
	for _, c := range positional {
		t.EnsureColumn(c)
	}
	return &Roster{Table: t}, nil
}

// LoadOrEmpty is Load that returns an empty roster when the file is missing.
func LoadOrEmpty(path string) (*Roster, error) {
	r, err := Load(path)
	if errors.Is(err, sheet.ErrNotFound) {
		return New(), nil
	}
	return r, err
}

func (r *Roster) Save(path string) error {
	return sheet.Write(path, r.Table)
}

func (r *Roster) Len() int { return r.Table.Len() }

func (r *Roster) Companies() []Company {
	out := make([]Company, 0, r.Table.Len())
	for _, row := range r.Table.Rows {
		if row.Get(ColCompany) == "" {
			continue
		}
		out = append(out, companyFromRow(row))
	}
	return out
}

// Names returns company names in roster order.
func (r *Roster) Names() []string {
	return r.Table.Column(ColCompany)
}

// Find returns the first company whose name equals name exactly.
func (r *Roster) Find(name string) (Company, bool) {
	for _, row := range r.Table.Rows {
		if row.Get(ColCompany) == name {
			return companyFromRow(row), true
		}
	}
	return Company{}, false
}

// Add appends a company. An empty DateAdded is set to today.
func (r *Roster) Add(c Company, now time.Time) {
	if c.DateAdded == "" {
		c.DateAdded = now.Format("2006-01-02")
	}
	r.Table.Append(sheet.Row{
		ColCompany:   strings.TrimSpace(c.Name),
		ColType:      c.Type,
		ColWebpage:   c.Webpage,
		ColDateAdded: c.DateAdded,
	}, positional...)
}

// Remove deletes every row for which drop returns true and returns the
// removed company names.
func (r *Roster) Remove(drop func(sheet.Row) bool) []string {
	var removed []string
	kept := r.Table.Rows[:0]
	for _, row := range r.Table.Rows {
		if drop(row) {
			removed = append(removed, row.Get(ColCompany))
			continue
		}
		kept = append(kept, row)
	}
	r.Table.Rows = kept
	return removed
}

func companyFromRow(row sheet.Row) Company {
	return Company{
		Name:      row.Get(ColCompany),
		Type:      row.Get(ColType),
		Webpage:   row.Get(ColWebpage),
		DateAdded: row.Get(ColDateAdded),
	}
}

// Seed is the starter roster of bioplastic producers.
var Seed = []Company{
	{Name: "NatureWorks", Type: "producer", Webpage: "www.natureworksllc.com"},
	{Name: "BASF", Type: "producer", Webpage: "www.basf.com"},
	{Name: "Novamont", Type: "producer", Webpage: "www.novamont.com"},
	{Name: "Corbion", Type: "producer", Webpage: "www.corbion.com"},
	{Name: "Biome Bioplastics", Type: "producer", Webpage: "www.biomebioplastics.com"},
	{Name: "Danimer Scientific", Type: "producer", Webpage: "www.danimerscientific.com"},
	{Name: "Total Corbion PLA", Type: "producer", Webpage: "www.total-corbion.com"},
	{Name: "Mitsubishi Chemical", Type: "producer", Webpage: "www.mcgc.com"},
	{Name: "PTT MCC Biochem", Type: "producer", Webpage: "www.pttmcc.com"},
	{Name: "Futerro", Type: "producer", Webpage: "www.futerro.com"},
}
