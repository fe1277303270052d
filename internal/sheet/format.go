package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Layout describes presentation applied after a table is written.
type Layout struct {
	Widths     map[string]float64
	WrapText   []string
	LinkColumn []string
}

// CompanyLayout is used for the company roster.
var CompanyLayout = Layout{
	Widths: map[string]float64{
		"Company":           25,
		"Type":              20,
		"Country":           15,
		"Webpage":           40,
		"Description":       70,
		"Primary Materials": 50,
		"Market Segments":   50,
		"Status":            12,
		"Publicly Listed":   15,
		"Stock Ticker":      15,
		"Date Added":        15,
		"RSS Feed URL":      50,
		"News Section URL":  50,
	},
	WrapText:   []string{"Description", "Primary Materials", "Market Segments", "Headline"},
	LinkColumn: []string{"Webpage", "RSS Feed URL", "News Section URL"},
}

// Format applies column widths, wrapped text and clickable links to the
// first worksheet of an existing workbook.
func Format(path string, layout Layout) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	name := sheets[0]
	rows, err := f.GetRows(name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0]

	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}
	linkStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "0563C1", Underline: "single"}})
	if err != nil {
		return err
	}

	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if w, ok := layout.Widths[h]; ok {
			if err := f.SetColWidth(name, col, col, w); err != nil {
				return err
			}
		}
		if contains(layout.WrapText, h) && len(rows) > 1 {
			if err := f.SetCellStyle(name, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, len(rows)), wrapStyle); err != nil {
				return err
			}
		}
		if !contains(layout.LinkColumn, h) {
			continue
		}
		for r := 1; r < len(rows); r++ {
			if i >= len(rows[r]) {
				continue
			}
			link := NormalizeURL(rows[r][i])
			if link == "" {
				continue
			}
			cell := fmt.Sprintf("%s%d", col, r+1)
			if err := f.SetCellHyperLink(name, cell, link, "External"); err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, linkStyle); err != nil {
				return err
			}
		}
	}
	return f.Save()
}

// NormalizeURL trims u and adds https:// when it has no scheme.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
