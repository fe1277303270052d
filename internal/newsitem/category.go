package newsitem

// Categories is the fixed set of news categories, in prompt order.
var Categories = []Category{
	{"Plant Announcement", "plant openings, closures, revamps, maintenance, capacity changes"},
	{"People Moves", "key decision makers joining or leaving"},
	{"M&A", "mergers and acquisitions"},
	{"Litigation", "court cases, arbitration, lawsuits"},
	{"Product Launch", "new materials, grades, formulations, innovations"},
	{"Partnerships", "collaborations, joint ventures, R&D agreements"},
	{"Financial Results", "earnings, revenue reports, financial performance"},
	{"Supply Agreements", "offtake agreements, contracts, customer wins"},
	{"Investment & Funding", "capital raises, grants, government funding"},
	{"Certifications", "regulatory approvals, certifications, compliance"},
}

type Category struct {
	Name        string
	Description string
}

func IsCategory(name string) bool {
	for _, c := range Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
