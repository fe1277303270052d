package enrich

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
)

var ValidTypes = []string{
	"Bioplastic Producer",
	"Compounder",
	"Converter",
	"Technology Company",
	"Equipment Manufacturer",
	"Additive Producer",
	"Testing/Certification Company",
	"Distributor/Trader",
	"Recycling Company",
	"Waste Management",
}

var ValidStatuses = []string{"Active", "Acquired", "Defunct", "Unknown"}

const (
	Unknown        = "Unknown"
	maxDescription = 500
)

// Profile is the research answer for one company. Values are kept as
// decoded so non-string answers can be coerced.
type Profile map[string]any

func (p Profile) str(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case bool:
		if t {
			return "Yes", true
		}
		return "No", true
	default:
		return strings.TrimSpace(fmt.Sprint(t)), true
	}
}

func (p Profile) strOr(key, fallback string) string {
	if s, ok := p.str(key); ok {
		return s
	}
	return fallback
}

// Clean normalizes a profile into roster cells.
func Clean(p Profile, now time.Time) map[string]string {
	out := map[string]string{}

	out[roster.ColType] = normalizeType(p.strOr("Type", Unknown))

	country := p.strOr("Country", Unknown)
	if country == "" {
		country = Unknown
	}
	out[roster.ColCountry] = country

	desc := p.strOr("Description", "")
	if r := []rune(desc); len(r) > maxDescription {
		desc = string(r[:maxDescription-3]) + "..."
	}
	out[roster.ColDescription] = desc

	out[roster.ColPrimaryMaterials] = p.strOr("PrimaryMaterials", Unknown)
	out[roster.ColMarketSegments] = p.strOr("MarketSegments", Unknown)

	status := p.strOr("Status", Unknown)
	if !contains(ValidStatuses, status) {
		status = Unknown
	}
	out[roster.ColStatus] = status

	out[roster.ColWebpage] = normalizeWebpage(p.strOr("Webpage", ""))

	listed := "No"
	switch strings.ToLower(p.strOr("PubliclyListed", "No")) {
	case "yes", "y", "true":
		listed = "Yes"
	}
	out[roster.ColPubliclyListed] = listed

	ticker := p.strOr("StockTicker", "")
	if listed == "No" {
		ticker = ""
	}
	out[roster.ColStockTicker] = ticker

	out[roster.ColDateAdded] = now.Format("2006-01-02")
	return out
}

// normalizeType accepts an exact type or one that contains, or is
// contained in, a valid type.
func normalizeType(t string) string {
	if contains(ValidTypes, t) {
		return t
	}
	lt := strings.ToLower(t)
	if lt == "" {
		return Unknown
	}
	for _, v := range ValidTypes {
		lv := strings.ToLower(v)
		if strings.Contains(lt, lv) || strings.Contains(lv, lt) {
			return v
		}
	}
	return Unknown
}

func normalizeWebpage(w string) string {
	if w == "" {
		return ""
	}
	if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
		w = "https://" + w
	}
	u, err := url.Parse(w)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return w
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
