package newsitem

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Item is a validated, normalized news item.
type Item struct {
	Company     string `json:"company"`
	Category    string `json:"category"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Date        string `json:"date"`
}

// Published returns the item date as a UTC midnight time.
func (i Item) Published() time.Time {
	t, _ := time.Parse(DateLayout, i.Date)
	return t
}

// Schema maps item fields to the JSON keys a prompt asked for.
type Schema struct {
	Company     string
	Date        string
	Category    string
	Headline    string
	Description string
	URL         string
	// Required keys, checked in order.
	Required []string
	// RejectEmpty treats a present but blank required value as missing.
	RejectEmpty bool
	// DateFirst checks the date before the required fields.
	DateFirst bool
}

var WeeklySchema = Schema{
	Company:     "company",
	Date:        "date",
	Category:    "category",
	Headline:    "headline",
	Description: "description",
	URL:         "url",
	Required:    []string{"date", "company", "category", "description", "url"},
}

var DigestSchema = Schema{
	Company:     "Company",
	Date:        "PublishingDate",
	Category:    "Category",
	Headline:    "Headline",
	Description: "Description",
	URL:         "SourceURL",
	Required:    []string{"Company", "PublishingDate", "Headline", "Description", "Category", "SourceURL"},
	RejectEmpty: true,
	DateFirst:   true,
}

// NonCompanyPatterns mark reported names that are publications, markets or
// studies rather than companies.
var NonCompanyPatterns = []string{
	"market", "industry", "report", "insights", "analysis", "news",
	"publication", "association", "plastics industry", "biopolymers market",
	"research", "study", "survey", "forecast", "outlook",
}

type Options struct {
	Schema Schema
	// From and To bound the publication date, inclusive, by calendar date.
	From time.Time
	To   time.Time
	// RequireCategory rejects items outside Categories.
	RequireCategory bool
	// RejectNonCompanies rejects names containing NonCompanyPatterns.
	RejectNonCompanies bool
}

type Rejection struct {
	Index   int
	Company string
	Reason  string
}

type Result struct {
	Items    []Item
	Rejected []Rejection
}

type Validator struct {
	opts Options
	from time.Time
	to   time.Time
}

func NewValidator(opts Options) *Validator {
	if opts.Schema.Company == "" {
		opts.Schema = WeeklySchema
	}
	return &Validator{opts: opts, from: dateOnly(opts.From), to: dateOnly(opts.To)}
}

// Parse extracts the JSON array from text and validates every element.
// It fails only when no array can be extracted.
func (v *Validator) Parse(text string) (Result, error) {
	raw, err := ExtractArray(text)
	if err != nil {
		return Result{}, err
	}
	return v.Validate(raw), nil
}

func (v *Validator) Validate(raw []json.RawMessage) Result {
	var res Result
	for i, r := range raw {
		var fields map[string]any
		if err := json.Unmarshal(r, &fields); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: "item is not an object"})
			continue
		}
		item, reason := v.Check(fields)
		if reason != "" {
			company, _ := fields[v.opts.Schema.Company].(string)
			res.Rejected = append(res.Rejected, Rejection{Index: i, Company: company, Reason: reason})
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res
}

// Check validates one decoded item. A non-empty reason means rejection.
func (v *Validator) Check(fields map[string]any) (Item, string) {
	s := v.opts.Schema
	if v.opts.RejectNonCompanies {
		name := strings.ToLower(stringField(fields, s.Company))
		for _, p := range NonCompanyPatterns {
			if strings.Contains(name, p) {
				return Item{}, fmt.Sprintf("not a company (contains '%s')", p)
			}
		}
	}
	var date time.Time
	checks := []func() string{
		func() string { return v.checkRequired(fields) },
		func() string {
			var reason string
			date, reason = v.checkDate(fields)
			return reason
		},
	}
	if s.DateFirst {
		checks[0], checks[1] = checks[1], checks[0]
	}
	for _, check := range checks {
		if reason := check(); reason != "" {
			return Item{}, reason
		}
	}

	category := strings.TrimSpace(stringField(fields, s.Category))
	if v.opts.RequireCategory && !IsCategory(category) {
		return Item{}, "invalid category: " + category
	}

	return Item{
		Company:     strings.TrimSpace(stringField(fields, s.Company)),
		Category:    category,
		Headline:    strings.TrimSpace(stringField(fields, s.Headline)),
		Description: strings.TrimSpace(stringField(fields, s.Description)),
		URL:         strings.TrimSpace(stringField(fields, s.URL)),
		Date:        date.Format(DateLayout),
	}, ""
}

func (v *Validator) checkRequired(fields map[string]any) string {
	s := v.opts.Schema
	for _, key := range s.Required {
		val, ok := fields[key]
		if !ok || val == nil {
			return "missing required field: " + key
		}
		str, isString := val.(string)
		if !isString {
			return fmt.Sprintf("field %s is not a string", key)
		}
		if s.RejectEmpty && strings.TrimSpace(str) == "" {
			return "missing required field: " + key
		}
	}
	return ""
}

// checkDate parses the item date and checks it against the window.
func (v *Validator) checkDate(fields map[string]any) (time.Time, string) {
	rawDate := strings.TrimSpace(stringField(fields, v.opts.Schema.Date))
	date, err := ParseDate(rawDate)
	if err != nil {
		return time.Time{}, fmt.Sprintf("invalid date format: %q", rawDate)
	}
	if !v.from.IsZero() && date.Before(v.from) || !v.to.IsZero() && date.After(v.to) {
		return time.Time{}, fmt.Sprintf("date %s outside range %s..%s", date.Format(DateLayout), v.from.Format(DateLayout), v.to.Format(DateLayout))
	}
	return date, ""
}

func stringField(fields map[string]any, key string) string {
	if key == "" {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
}

// ParseDate accepts the date shapes upstream text is seen to use and
// returns the calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
