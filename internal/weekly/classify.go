package weekly

import (
	"net/url"
	"strings"
)

var typeKeywords = []struct {
	typ   string
	words []string
}{
	{"producer", []string{"produce", "production", "manufacturer", "manufacturing", "pla", "pha", "biopolymer"}},
	{"converter", []string{"convert", "packaging", "film", "bottle", "container"}},
	{"compounder", []string{"compound", "formulation", "blend", "masterbatch"}},
	{"equipment", []string{"equipment", "machinery", "technology provider", "system", "extruder"}},
	{"additive", []string{"additive", "stabilizer", "plasticizer", "nucleating agent"}},
}

// GuessType picks a company type for a newly discovered company from the
// description of the story that mentioned it. Substring matching means
// short keywords like "pla" hit inside longer words; producer is the
// fallback.
func GuessType(description string) string {
	d := strings.ToLower(description)
	for _, tk := range typeKeywords {
		for _, w := range tk.words {
			if strings.Contains(d, w) {
				return tk.typ
			}
		}
	}
	return "producer"
}

// SlotURL puts a story URL in the company slot when its host matches the
// company webpage, otherwise in the other slot.
func SlotURL(rawURL, webpage string) (companyURL, otherURL string) {
	if rawURL == "" {
		return "", ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", rawURL
	}
	host := strings.TrimSuffix(strings.ReplaceAll(strings.ToLower(u.Host), "www.", ""), "/")
	site := strings.ToLower(webpage)
	site = strings.ReplaceAll(site, "www.", "")
	site = strings.TrimPrefix(site, "http://")
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimSuffix(site, "/")
	if site == "" || host == "" {
		return "", rawURL
	}
	if host == site || strings.Contains(site, host) || strings.Contains(host, site) {
		return rawURL, ""
	}
	return "", rawURL
}
